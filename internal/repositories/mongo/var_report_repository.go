package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Fuuurma/FinanceHub-sub001/internal/calculator"
	"github.com/Fuuurma/FinanceHub-sub001/internal/repositories"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/database"
)

const defaultHistoryLimit = 30

// MongoVaRReportRepository implements VaRReportRepository using MongoDB
type MongoVaRReportRepository struct {
	collection *mongo.Collection
}

// NewVaRReportRepository creates a new MongoDB VaR report repository
func NewVaRReportRepository(db *mongo.Database) repositories.VaRReportRepository {
	return &MongoVaRReportRepository{
		collection: db.Collection(database.VaRReportCollection),
	}
}

// Create stores a computed report
func (r *MongoVaRReportRepository) Create(ctx context.Context, report *calculator.VaRReport) error {
	if _, err := r.collection.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to store var report: %w", err)
	}
	return nil
}

// GetHistory retrieves the latest reports of a portfolio, newest first
func (r *MongoVaRReportRepository) GetHistory(ctx context.Context, portfolioID string, limit int) ([]calculator.VaRReport, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "calculated_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"portfolio_id": portfolioID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get var history: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []calculator.VaRReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode var history: %w", err)
	}

	return reports, nil
}
