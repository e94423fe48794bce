package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
)

// Collection names
const (
	TargetsCollection   = "allocation_targets"
	SnapshotsCollection = "portfolio_snapshots"
	SessionsCollection  = "rebalancing_sessions"
	VaRReportCollection = "var_reports"

	varReportRetention = 90 * 24 * time.Hour
)

// MongoDB represents MongoDB database connection
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(cfg config.DatabaseConfig) (*MongoDB, error) {
	// Create client options
	clientOpts := options.Client().ApplyURI(cfg.URI).SetRegistry(Registry())

	// Set connection pool options
	if cfg.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	if cfg.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(uint64(cfg.MinPoolSize))
	}
	if cfg.MaxIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(time.Duration(cfg.MaxIdleTime) * time.Second)
	}

	// Set timeouts
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(time.Duration(cfg.ConnectTimeout) * time.Second)
	}
	if cfg.SocketTimeout > 0 {
		clientOpts.SetSocketTimeout(time.Duration(cfg.SocketTimeout) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)

	if err := createIndexes(ctx, database); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &MongoDB{
		client:   client,
		database: database,
	}, nil
}

// GetDatabase returns the database instance
func (m *MongoDB) GetDatabase() *mongo.Database {
	return m.database
}

// Disconnect closes the database connection
func (m *MongoDB) Disconnect() error {
	if m.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return m.client.Disconnect(ctx)
}

// Ping checks the database connection
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// IndexModels lists the indexes each analytics collection needs
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		TargetsCollection: {
			{
				Keys:    bson.D{{Key: "portfolio_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		SnapshotsCollection: {
			{Keys: bson.D{{Key: "portfolio_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		SessionsCollection: {
			{Keys: bson.D{{Key: "portfolio_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		VaRReportCollection: {
			{Keys: bson.D{{Key: "portfolio_id", Value: 1}, {Key: "calculated_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "calculated_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(int32(varReportRetention.Seconds())),
			},
		},
	}
}

// createIndexes creates necessary indexes for collections
func createIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range IndexModels() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}
