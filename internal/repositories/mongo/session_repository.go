package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/repositories"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/database"
)

// MongoSessionRepository implements SessionRepository using MongoDB
type MongoSessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new MongoDB rebalancing session repository
func NewSessionRepository(db *mongo.Database) repositories.SessionRepository {
	return &MongoSessionRepository{
		collection: db.Collection(database.SessionsCollection),
	}
}

// Create stores a new session
func (r *MongoSessionRepository) Create(ctx context.Context, session *analytics.RebalancingSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create rebalancing session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID
func (r *MongoSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*analytics.RebalancingSession, error) {
	var session analytics.RebalancingSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rebalancing session: %w", err)
	}

	return &session, nil
}

// Update replaces a stored session
func (r *MongoSessionRepository) Update(ctx context.Context, session *analytics.RebalancingSession) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return fmt.Errorf("failed to update rebalancing session: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", session.ID, repositories.ErrNotFound)
	}

	return nil
}

// ListByPortfolioID retrieves the sessions of a portfolio, newest first
func (r *MongoSessionRepository) ListByPortfolioID(ctx context.Context, portfolioID string, limit int) ([]analytics.RebalancingSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"portfolio_id": portfolioID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list rebalancing sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []analytics.RebalancingSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode rebalancing sessions: %w", err)
	}

	return sessions, nil
}
