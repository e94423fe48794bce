package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/repositories"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/database"
)

// MongoTargetRepository implements TargetRepository using MongoDB
type MongoTargetRepository struct {
	collection *mongo.Collection
}

// NewTargetRepository creates a new MongoDB allocation target repository
func NewTargetRepository(db *mongo.Database) repositories.TargetRepository {
	return &MongoTargetRepository{
		collection: db.Collection(database.TargetsCollection),
	}
}

// Upsert replaces the target set of a portfolio
func (r *MongoTargetRepository) Upsert(ctx context.Context, targets *models.AllocationTargets) error {
	targets.UpdatedAt = time.Now().UTC()

	filter := bson.M{"portfolio_id": targets.PortfolioID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, targets, opts); err != nil {
		return fmt.Errorf("failed to upsert allocation targets: %w", err)
	}

	return nil
}

// GetByPortfolioID retrieves the target set of a portfolio
func (r *MongoTargetRepository) GetByPortfolioID(ctx context.Context, portfolioID string) (*models.AllocationTargets, error) {
	var targets models.AllocationTargets
	err := r.collection.FindOne(ctx, bson.M{"portfolio_id": portfolioID}).Decode(&targets)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("targets for portfolio %s: %w", portfolioID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get allocation targets: %w", err)
	}

	return &targets, nil
}

// List retrieves every stored target set
func (r *MongoTargetRepository) List(ctx context.Context) ([]models.AllocationTargets, error) {
	opts := options.Find().SetSort(bson.D{{Key: "portfolio_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocation targets: %w", err)
	}
	defer cursor.Close(ctx)

	var all []models.AllocationTargets
	if err := cursor.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("failed to decode allocation targets: %w", err)
	}

	return all, nil
}
