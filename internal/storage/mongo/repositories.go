package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lugondev/go-fixedswap/internal/storage"
)

func findMany[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func paged(limit, offset int, sort bson.D) *options.FindOptions {
	return options.Find().SetLimit(int64(limit)).SetSkip(int64(offset)).SetSort(sort)
}

type mongoPoolRepository struct {
	collection *mongo.Collection
}

func (r *mongoPoolRepository) Save(ctx context.Context, pool *storage.PoolModel) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"address": pool.Address}
	update := bson.M{"$setOnInsert": pool}
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *mongoPoolRepository) FindByAddress(ctx context.Context, address string) (*storage.PoolModel, error) {
	var pool storage.PoolModel
	err := r.collection.FindOne(ctx, bson.M{"address": address}).Decode(&pool)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &pool, nil
}

func (r *mongoPoolRepository) FindByQuoteMint(ctx context.Context, mint string, limit int, offset int) ([]*storage.PoolModel, error) {
	sort := bson.D{{Key: "slot", Value: -1}, {Key: "address", Value: 1}}
	return findMany[storage.PoolModel](ctx, r.collection, bson.M{"quote_mint": mint}, paged(limit, offset, sort))
}

func (r *mongoPoolRepository) List(ctx context.Context, limit int, offset int) ([]*storage.PoolModel, error) {
	sort := bson.D{{Key: "slot", Value: -1}, {Key: "address", Value: 1}}
	return findMany[storage.PoolModel](ctx, r.collection, bson.M{}, paged(limit, offset, sort))
}

type mongoSwapRepository struct {
	collection *mongo.Collection
}

func (r *mongoSwapRepository) Save(ctx context.Context, swap *storage.SwapModel) error {
	_, err := r.collection.InsertOne(ctx, swap)
	return err
}

func (r *mongoSwapRepository) SaveBatch(ctx context.Context, swaps []*storage.SwapModel) error {
	helper := storage.NewMongoBatchHelper[*storage.SwapModel](r.collection)
	return helper.InsertMany(ctx, swaps)
}

func (r *mongoSwapRepository) FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*storage.SwapModel, error) {
	return findMany[storage.SwapModel](ctx, r.collection, bson.M{"pool": pool}, paged(limit, offset, bson.D{{Key: "slot", Value: -1}}))
}

func (r *mongoSwapRepository) FindByUser(ctx context.Context, user string, limit int, offset int) ([]*storage.SwapModel, error) {
	return findMany[storage.SwapModel](ctx, r.collection, bson.M{"user": user}, paged(limit, offset, bson.D{{Key: "slot", Value: -1}}))
}

func (r *mongoSwapRepository) Volume(ctx context.Context, pool string) (*storage.PoolVolume, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"pool": pool}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$pool",
			"swaps":      bson.M{"$sum": 1},
			"amount_in":  bson.M{"$sum": "$amount_in"},
			"amount_out": bson.M{"$sum": "$amount_out"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	volume := &storage.PoolVolume{Pool: pool}
	if cursor.Next(ctx) {
		if err := cursor.Decode(volume); err != nil {
			return nil, err
		}
	}
	return volume, cursor.Err()
}

type mongoEventRepository struct {
	collection *mongo.Collection
}

func (r *mongoEventRepository) Save(ctx context.Context, event *storage.EventModel) error {
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *mongoEventRepository) SaveBatch(ctx context.Context, events []*storage.EventModel) error {
	helper := storage.NewMongoBatchHelper[*storage.EventModel](r.collection)
	return helper.InsertMany(ctx, events)
}

func (r *mongoEventRepository) FindByReceipt(ctx context.Context, receiptID string) ([]*storage.EventModel, error) {
	return findMany[storage.EventModel](ctx, r.collection, bson.M{"receipt_id": receiptID})
}

func (r *mongoEventRepository) FindByEventName(ctx context.Context, eventName string, limit int, offset int) ([]*storage.EventModel, error) {
	return findMany[storage.EventModel](ctx, r.collection, bson.M{"event_name": eventName}, paged(limit, offset, bson.D{{Key: "slot", Value: -1}}))
}
