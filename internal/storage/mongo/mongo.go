package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lugondev/go-fixedswap/internal/config"
	"github.com/lugondev/go-fixedswap/internal/storage"
)

type MongoRepository struct {
	client    *mongo.Client
	database  *mongo.Database
	pools     *mongo.Collection
	swaps     *mongo.Collection
	events    *mongo.Collection
	poolRepo  storage.PoolRepository
	swapRepo  storage.SwapRepository
	eventRepo storage.EventRepository
}

func NewMongoRepository(ctx context.Context, cfg *config.MongoDBConfig) (*MongoRepository, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetConnectTimeout(time.Duration(cfg.ConnectTimeout) * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)

	repo := &MongoRepository{
		client:   client,
		database: database,
		pools:    database.Collection("pools"),
		swaps:    database.Collection("swaps"),
		events:   database.Collection("events"),
	}

	repo.poolRepo = &mongoPoolRepository{collection: repo.pools}
	repo.swapRepo = &mongoSwapRepository{collection: repo.swaps}
	repo.eventRepo = &mongoEventRepository{collection: repo.events}

	if err := repo.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return repo, nil
}

func (r *MongoRepository) createIndexes(ctx context.Context) error {
	indexes := []struct {
		collection *mongo.Collection
		models     []mongo.IndexModel
	}{
		{
			collection: r.pools,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "address", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "quote_mint", Value: 1}}},
				{Keys: bson.D{{Key: "slot", Value: -1}}},
			},
		},
		{
			collection: r.swaps,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "pool", Value: 1}, {Key: "slot", Value: -1}}},
				{Keys: bson.D{{Key: "user", Value: 1}, {Key: "slot", Value: -1}}},
			},
		},
		{
			collection: r.events,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "receipt_id", Value: 1}}},
				{Keys: bson.D{{Key: "event_name", Value: 1}}},
				{Keys: bson.D{{Key: "slot", Value: -1}}},
			},
		},
	}

	for _, idx := range indexes {
		if _, err := idx.collection.Indexes().CreateMany(ctx, idx.models); err != nil {
			return err
		}
	}

	return nil
}

func (r *MongoRepository) Pools() storage.PoolRepository {
	return r.poolRepo
}

func (r *MongoRepository) Swaps() storage.SwapRepository {
	return r.swapRepo
}

func (r *MongoRepository) Events() storage.EventRepository {
	return r.eventRepo
}

func (r *MongoRepository) Close() error {
	if r.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return r.client.Disconnect(ctx)
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}
