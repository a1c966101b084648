package storage

import (
	"context"
)

// Find methods return (nil, nil) when nothing matches.

type PoolRepository interface {
	Save(ctx context.Context, pool *PoolModel) error
	FindByAddress(ctx context.Context, address string) (*PoolModel, error)
	FindByQuoteMint(ctx context.Context, mint string, limit int, offset int) ([]*PoolModel, error)
	List(ctx context.Context, limit int, offset int) ([]*PoolModel, error)
}

type SwapRepository interface {
	Save(ctx context.Context, swap *SwapModel) error
	SaveBatch(ctx context.Context, swaps []*SwapModel) error
	FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*SwapModel, error)
	FindByUser(ctx context.Context, user string, limit int, offset int) ([]*SwapModel, error)
	Volume(ctx context.Context, pool string) (*PoolVolume, error)
}

type EventRepository interface {
	Save(ctx context.Context, event *EventModel) error
	SaveBatch(ctx context.Context, events []*EventModel) error
	FindByReceipt(ctx context.Context, receiptID string) ([]*EventModel, error)
	FindByEventName(ctx context.Context, eventName string, limit int, offset int) ([]*EventModel, error)
}

type Repository interface {
	Pools() PoolRepository
	Swaps() SwapRepository
	Events() EventRepository
	Close() error
	Ping(ctx context.Context) error
}
