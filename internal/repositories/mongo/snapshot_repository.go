package mongo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Fuuurma/FinanceHub-sub001/internal/models"
	"github.com/Fuuurma/FinanceHub-sub001/internal/repositories"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/database"
)

// MongoSnapshotRepository implements SnapshotRepository using MongoDB
type MongoSnapshotRepository struct {
	collection *mongo.Collection
}

// NewSnapshotRepository creates a new MongoDB snapshot repository
func NewSnapshotRepository(db *mongo.Database) repositories.SnapshotRepository {
	return &MongoSnapshotRepository{
		collection: db.Collection(database.SnapshotsCollection),
	}
}

// Create stores a new snapshot
func (r *MongoSnapshotRepository) Create(ctx context.Context, snapshot *models.PortfolioSnapshot) error {
	if snapshot.ID.IsZero() {
		snapshot.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = now
	}
	snapshot.CreatedAt = now

	_, err := r.collection.InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent snapshot for a portfolio
func (r *MongoSnapshotRepository) GetLatest(ctx context.Context, portfolioID string) (*models.PortfolioSnapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var snapshot models.PortfolioSnapshot
	err := r.collection.FindOne(ctx, bson.M{"portfolio_id": portfolioID}, opts).Decode(&snapshot)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("snapshot for portfolio %s: %w", portfolioID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &snapshot, nil
}

// GetByPortfolioID retrieves snapshots for a portfolio, newest first
func (r *MongoSnapshotRepository) GetByPortfolioID(ctx context.Context, portfolioID string, limit, offset int) ([]models.PortfolioSnapshot, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"portfolio_id": portfolioID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snapshots []models.PortfolioSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode snapshots: %w", err)
	}

	return snapshots, nil
}

// ListPortfolioIDs returns every portfolio that has at least one snapshot
func (r *MongoSnapshotRepository) ListPortfolioIDs(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "portfolio_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolio ids: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	return ids, nil
}

// DeleteOldSnapshots deletes snapshots older than the given duration
func (r *MongoSnapshotRepository) DeleteOldSnapshots(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	result, err := r.collection.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}

	return result.DeletedCount, nil
}
