package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ioccore/internal/model"
)

// ResultRepo persists derived scoring artifacts. Results are superseded by
// later recomputation, never mutated in place: every save is an insert and
// reads return the latest by computation time.
type ResultRepo interface {
	Save360(ctx context.Context, result *model.Aggregated360Result) error
	Latest360(ctx context.Context, assessmentID, subjectID string) (*model.Aggregated360Result, error)
	SaveRiskProfile(ctx context.Context, assessmentID string, profile *model.DarkSideProfile) error
	LatestRiskProfile(ctx context.Context, assessmentID, subjectID string) (*model.DarkSideProfile, error)
}

type resultRepo struct {
	results *mongo.Collection
	risks   *mongo.Collection
}

// NewResultRepo creates a new result repository
func NewResultRepo(db *mongo.Database) ResultRepo {
	return &resultRepo{
		results: db.Collection("aggregated_results"),
		risks:   db.Collection("risk_profiles"),
	}
}

func (r *resultRepo) Save360(ctx context.Context, result *model.Aggregated360Result) error {
	inserted, err := r.results.InsertOne(ctx, result)
	if err != nil {
		return err
	}
	if oid, ok := inserted.InsertedID.(primitive.ObjectID); ok {
		result.ID = oid.Hex()
	}
	return nil
}

func (r *resultRepo) Latest360(ctx context.Context, assessmentID, subjectID string) (*model.Aggregated360Result, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "computedAt", Value: -1}})
	var result model.Aggregated360Result
	err := r.results.FindOne(ctx, bson.M{"assessmentId": assessmentID, "subjectId": subjectID}, opts).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type riskSnapshot struct {
	AssessmentID string                `bson:"assessmentId"`
	Profile      model.DarkSideProfile `bson:"profile"`
}

func (r *resultRepo) SaveRiskProfile(ctx context.Context, assessmentID string, profile *model.DarkSideProfile) error {
	_, err := r.risks.InsertOne(ctx, riskSnapshot{AssessmentID: assessmentID, Profile: *profile})
	return err
}

func (r *resultRepo) LatestRiskProfile(ctx context.Context, assessmentID, subjectID string) (*model.DarkSideProfile, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "profile.assessedAt", Value: -1}})
	var snapshot riskSnapshot
	err := r.risks.FindOne(ctx, bson.M{"assessmentId": assessmentID, "profile.subjectId": subjectID}, opts).Decode(&snapshot)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot.Profile, nil
}
