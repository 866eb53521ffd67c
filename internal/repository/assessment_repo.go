package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ioccore/internal/model"
)

// AssessmentRepo persists question-trait mappings and rater submissions.
// Mappings are immutable after authoring; changing one would invalidate
// historical scores.
type AssessmentRepo interface {
	SaveMappings(ctx context.Context, mappings []model.QuestionMapping) error
	GetMappings(ctx context.Context, assessmentID string) (map[string]model.QuestionMapping, error)
	CreateSubmission(ctx context.Context, submission *model.Submission) error
	GetSubmissions(ctx context.Context, assessmentID, subjectID string) ([]*model.Submission, error)
}

type assessmentRepo struct {
	mappings    *mongo.Collection
	submissions *mongo.Collection
}

// NewAssessmentRepo creates a new assessment repository
func NewAssessmentRepo(db *mongo.Database) AssessmentRepo {
	return &assessmentRepo{
		mappings:    db.Collection("question_mappings"),
		submissions: db.Collection("submissions"),
	}
}

func (r *assessmentRepo) SaveMappings(ctx context.Context, mappings []model.QuestionMapping) error {
	if len(mappings) == 0 {
		return nil
	}
	docs := make([]interface{}, len(mappings))
	for i, m := range mappings {
		docs[i] = m
	}
	_, err := r.mappings.InsertMany(ctx, docs)
	return err
}

func (r *assessmentRepo) GetMappings(ctx context.Context, assessmentID string) (map[string]model.QuestionMapping, error) {
	cursor, err := r.mappings.Find(ctx, bson.M{"assessmentId": assessmentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var list []model.QuestionMapping
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}

	byQuestion := make(map[string]model.QuestionMapping, len(list))
	for _, m := range list {
		byQuestion[m.QuestionID] = m
	}
	return byQuestion, nil
}

func (r *assessmentRepo) CreateSubmission(ctx context.Context, submission *model.Submission) error {
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now()
	}
	result, err := r.submissions.InsertOne(ctx, submission)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		submission.ID = oid.Hex()
	}
	return nil
}

func (r *assessmentRepo) GetSubmissions(ctx context.Context, assessmentID, subjectID string) ([]*model.Submission, error) {
	cursor, err := r.submissions.Find(ctx, bson.M{"assessmentId": assessmentID, "subjectId": subjectID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var submissions []*model.Submission
	if err = cursor.All(ctx, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}
