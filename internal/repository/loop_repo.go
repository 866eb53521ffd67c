package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ioccore/internal/model"
)

// LoopRepo persists feedback loops, their append-only iteration history and
// disagreement records, plus the pending-request queue for the loop worker.
// Implements service.LoopStore.
type LoopRepo interface {
	CreateLoop(ctx context.Context, loop *model.FeedbackLoop) error
	UpdateLoop(ctx context.Context, loop *model.FeedbackLoop) error
	GetLoop(ctx context.Context, loopID string) (*model.FeedbackLoop, error)
	AppendIteration(ctx context.Context, iteration *model.Iteration) error
	GetIterations(ctx context.Context, loopID string) ([]*model.Iteration, error)
	RecordDisagreement(ctx context.Context, d *model.Disagreement) error
	GetDisagreements(ctx context.Context, loopID string) ([]*model.Disagreement, error)

	EnqueueRequest(ctx context.Context, req *model.LoopRequest) error
	ClaimNextRequest(ctx context.Context) (*model.LoopRequest, error)
	CompleteRequest(ctx context.Context, requestID string) error
}

type loopRepo struct {
	loops         *mongo.Collection
	iterations    *mongo.Collection
	disagreements *mongo.Collection
	requests      *mongo.Collection
}

// NewLoopRepo creates a new feedback-loop repository
func NewLoopRepo(db *mongo.Database) LoopRepo {
	return &loopRepo{
		loops:         db.Collection("feedback_loops"),
		iterations:    db.Collection("loop_iterations"),
		disagreements: db.Collection("loop_disagreements"),
		requests:      db.Collection("loop_requests"),
	}
}

func (r *loopRepo) CreateLoop(ctx context.Context, loop *model.FeedbackLoop) error {
	_, err := r.loops.InsertOne(ctx, loop)
	return err
}

func (r *loopRepo) UpdateLoop(ctx context.Context, loop *model.FeedbackLoop) error {
	_, err := r.loops.UpdateOne(ctx, bson.M{"_id": loop.ID}, bson.M{"$set": loop})
	return err
}

func (r *loopRepo) GetLoop(ctx context.Context, loopID string) (*model.FeedbackLoop, error) {
	var loop model.FeedbackLoop
	err := r.loops.FindOne(ctx, bson.M{"_id": loopID}).Decode(&loop)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loop, nil
}

// AppendIteration is insert-only; iterations are never updated or deleted
func (r *loopRepo) AppendIteration(ctx context.Context, iteration *model.Iteration) error {
	_, err := r.iterations.InsertOne(ctx, iteration)
	return err
}

func (r *loopRepo) GetIterations(ctx context.Context, loopID string) ([]*model.Iteration, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	cursor, err := r.iterations.Find(ctx, bson.M{"loopId": loopID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var iterations []*model.Iteration
	if err = cursor.All(ctx, &iterations); err != nil {
		return nil, err
	}
	return iterations, nil
}

func (r *loopRepo) RecordDisagreement(ctx context.Context, d *model.Disagreement) error {
	_, err := r.disagreements.InsertOne(ctx, d)
	return err
}

func (r *loopRepo) GetDisagreements(ctx context.Context, loopID string) ([]*model.Disagreement, error) {
	cursor, err := r.disagreements.Find(ctx, bson.M{"loopId": loopID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var disagreements []*model.Disagreement
	if err = cursor.All(ctx, &disagreements); err != nil {
		return nil, err
	}
	return disagreements, nil
}

func (r *loopRepo) EnqueueRequest(ctx context.Context, req *model.LoopRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.Status = model.RequestPending
	result, err := r.requests.InsertOne(ctx, req)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		req.ID = oid.Hex()
	}
	return nil
}

// ClaimNextRequest atomically flips the oldest pending request to claimed,
// so concurrent workers never pick up the same loop
func (r *loopRepo) ClaimNextRequest(ctx context.Context) (*model.LoopRequest, error) {
	now := time.Now()
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	var req model.LoopRequest
	err := r.requests.FindOneAndUpdate(ctx,
		bson.M{"status": model.RequestPending},
		bson.M{"$set": bson.M{"status": model.RequestClaimed, "claimedAt": now}},
		opts,
	).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *loopRepo) CompleteRequest(ctx context.Context, requestID string) error {
	oid, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return err
	}
	_, err = r.requests.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": model.RequestDone}})
	return err
}
