package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps pools, swaps and events in process memory. It backs
// the simulate command and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	pools  map[string]*PoolModel
	swaps  []*SwapModel
	events []*EventModel
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{pools: make(map[string]*PoolModel)}
}

func (r *MemoryRepository) Pools() PoolRepository   { return memoryPools{r} }
func (r *MemoryRepository) Swaps() SwapRepository   { return memorySwaps{r} }
func (r *MemoryRepository) Events() EventRepository { return memoryEvents{r} }
func (r *MemoryRepository) Close() error            { return nil }

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type memoryPools struct{ r *MemoryRepository }

func (m memoryPools) Save(ctx context.Context, pool *PoolModel) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	c := *pool
	m.r.pools[pool.Address] = &c
	return nil
}

func (m memoryPools) FindByAddress(ctx context.Context, address string) (*PoolModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	p, ok := m.r.pools[address]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (m memoryPools) sorted(match func(*PoolModel) bool) []*PoolModel {
	var out []*PoolModel
	for _, p := range m.r.pools {
		if match(p) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot > out[j].Slot
		}
		return out[i].Address < out[j].Address
	})
	return out
}

func (m memoryPools) FindByQuoteMint(ctx context.Context, mint string, limit int, offset int) ([]*PoolModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	return page(m.sorted(func(p *PoolModel) bool { return p.QuoteMint == mint }), limit, offset), nil
}

func (m memoryPools) List(ctx context.Context, limit int, offset int) ([]*PoolModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	return page(m.sorted(func(*PoolModel) bool { return true }), limit, offset), nil
}

type memorySwaps struct{ r *MemoryRepository }

func (m memorySwaps) Save(ctx context.Context, swap *SwapModel) error {
	return m.SaveBatch(ctx, []*SwapModel{swap})
}

func (m memorySwaps) SaveBatch(ctx context.Context, swaps []*SwapModel) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, s := range swaps {
		c := *s
		m.r.swaps = append(m.r.swaps, &c)
	}
	return nil
}

// filter returns matches newest first.
func (m memorySwaps) filter(match func(*SwapModel) bool) []*SwapModel {
	var out []*SwapModel
	for i := len(m.r.swaps) - 1; i >= 0; i-- {
		if s := m.r.swaps[i]; match(s) {
			c := *s
			out = append(out, &c)
		}
	}
	return out
}

func (m memorySwaps) FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*SwapModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	return page(m.filter(func(s *SwapModel) bool { return s.Pool == pool }), limit, offset), nil
}

func (m memorySwaps) FindByUser(ctx context.Context, user string, limit int, offset int) ([]*SwapModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	return page(m.filter(func(s *SwapModel) bool { return s.User == user }), limit, offset), nil
}

func (m memorySwaps) Volume(ctx context.Context, pool string) (*PoolVolume, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	v := &PoolVolume{Pool: pool}
	for _, s := range m.r.swaps {
		if s.Pool == pool {
			v.Swaps++
			v.AmountIn += s.AmountIn
			v.AmountOut += s.AmountOut
		}
	}
	return v, nil
}

type memoryEvents struct{ r *MemoryRepository }

func (m memoryEvents) Save(ctx context.Context, event *EventModel) error {
	return m.SaveBatch(ctx, []*EventModel{event})
}

func (m memoryEvents) SaveBatch(ctx context.Context, events []*EventModel) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, e := range events {
		c := *e
		m.r.events = append(m.r.events, &c)
	}
	return nil
}

func (m memoryEvents) FindByReceipt(ctx context.Context, receiptID string) ([]*EventModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	var out []*EventModel
	for _, e := range m.r.events {
		if e.ReceiptID == receiptID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m memoryEvents) FindByEventName(ctx context.Context, eventName string, limit int, offset int) ([]*EventModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	var out []*EventModel
	for i := len(m.r.events) - 1; i >= 0; i-- {
		if e := m.r.events[i]; e.EventName == eventName {
			c := *e
			out = append(out, &c)
		}
	}
	return page(out, limit, offset), nil
}
