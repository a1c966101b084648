package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lugondev/go-fixedswap/internal/storage"
)

const poolColumns = `id, address, authority, native_deposit_account, quote_mint, quote_reserve_account, rate, receipt_id, slot, created_at`

type postgresPoolRepository struct {
	pool *pgxpool.Pool
}

func (r *postgresPoolRepository) Save(ctx context.Context, p *storage.PoolModel) error {
	query := `
		INSERT INTO pools (` + poolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (address) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Address, p.Authority, p.NativeDepositAccount, p.QuoteMint,
		p.QuoteReserveAccount, p.Rate, p.ReceiptID, p.Slot, p.CreatedAt,
	)
	return err
}

func (r *postgresPoolRepository) FindByAddress(ctx context.Context, address string) (*storage.PoolModel, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE address = $1`

	p, err := QueryOne(r.pool, ctx, query, scanPool, address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresPoolRepository) FindByQuoteMint(ctx context.Context, mint string, limit int, offset int) ([]*storage.PoolModel, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE quote_mint = $1 ORDER BY slot DESC, address LIMIT $2 OFFSET $3`
	return QueryMany(r.pool, ctx, query, scanPoolRows, mint, limit, offset)
}

func (r *postgresPoolRepository) List(ctx context.Context, limit int, offset int) ([]*storage.PoolModel, error) {
	query := `SELECT ` + poolColumns + ` FROM pools ORDER BY slot DESC, address LIMIT $1 OFFSET $2`
	return QueryMany(r.pool, ctx, query, scanPoolRows, limit, offset)
}

func scanPool(row pgx.Row) (*storage.PoolModel, error) {
	var p storage.PoolModel
	err := row.Scan(
		&p.ID, &p.Address, &p.Authority, &p.NativeDepositAccount, &p.QuoteMint,
		&p.QuoteReserveAccount, &p.Rate, &p.ReceiptID, &p.Slot, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPoolRows(rows pgx.Rows) (*storage.PoolModel, error) {
	return scanPool(rows)
}

const swapColumns = `id, receipt_id, pool, "user", amount_in, amount_out, slot, created_at`

type postgresSwapRepository struct {
	pool *pgxpool.Pool
}

func (r *postgresSwapRepository) Save(ctx context.Context, s *storage.SwapModel) error {
	query := `INSERT INTO swaps (` + swapColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		s.ID, s.ReceiptID, s.Pool, s.User, s.AmountIn, s.AmountOut, s.Slot, s.CreatedAt,
	)
	return err
}

func (r *postgresSwapRepository) SaveBatch(ctx context.Context, swaps []*storage.SwapModel) error {
	if len(swaps) == 0 {
		return nil
	}

	helper := storage.NewPostgresBatchHelper(r.pool)
	query := `INSERT INTO swaps (` + swapColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`

	return helper.BatchInsert(ctx, query, len(swaps), func(batch *pgx.Batch, i int) {
		s := swaps[i]
		batch.Queue(query,
			s.ID, s.ReceiptID, s.Pool, s.User, s.AmountIn, s.AmountOut, s.Slot, s.CreatedAt,
		)
	})
}

func (r *postgresSwapRepository) FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*storage.SwapModel, error) {
	query := `SELECT ` + swapColumns + ` FROM swaps WHERE pool = $1 ORDER BY slot DESC LIMIT $2 OFFSET $3`
	return QueryMany(r.pool, ctx, query, scanSwap, pool, limit, offset)
}

func (r *postgresSwapRepository) FindByUser(ctx context.Context, user string, limit int, offset int) ([]*storage.SwapModel, error) {
	query := `SELECT ` + swapColumns + ` FROM swaps WHERE "user" = $1 ORDER BY slot DESC LIMIT $2 OFFSET $3`
	return QueryMany(r.pool, ctx, query, scanSwap, user, limit, offset)
}

func (r *postgresSwapRepository) Volume(ctx context.Context, pool string) (*storage.PoolVolume, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(amount_in), 0)::BIGINT, COALESCE(SUM(amount_out), 0)::BIGINT
		FROM swaps WHERE pool = $1`

	v := &storage.PoolVolume{Pool: pool}
	if err := r.pool.QueryRow(ctx, query, pool).Scan(&v.Swaps, &v.AmountIn, &v.AmountOut); err != nil {
		return nil, err
	}
	return v, nil
}

func scanSwap(rows pgx.Rows) (*storage.SwapModel, error) {
	var s storage.SwapModel
	err := rows.Scan(&s.ID, &s.ReceiptID, &s.Pool, &s.User, &s.AmountIn, &s.AmountOut, &s.Slot, &s.CreatedAt)
	return &s, err
}

const eventColumns = `id, receipt_id, program_id, event_name, data, slot, created_at`

type postgresEventRepository struct {
	pool *pgxpool.Pool
}

func (r *postgresEventRepository) Save(ctx context.Context, event *storage.EventModel) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	query := `INSERT INTO events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`
	_, err = r.pool.Exec(ctx, query,
		event.ID, event.ReceiptID, event.ProgramID, event.EventName, dataJSON, event.Slot, event.CreatedAt,
	)
	return err
}

func (r *postgresEventRepository) SaveBatch(ctx context.Context, events []*storage.EventModel) error {
	if len(events) == 0 {
		return nil
	}

	payloads := make([][]byte, len(events))
	for i, event := range events {
		dataJSON, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		payloads[i] = dataJSON
	}

	helper := storage.NewPostgresBatchHelper(r.pool)
	query := `INSERT INTO events (` + eventColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`

	return helper.BatchInsert(ctx, query, len(events), func(batch *pgx.Batch, i int) {
		e := events[i]
		batch.Queue(query, e.ID, e.ReceiptID, e.ProgramID, e.EventName, payloads[i], e.Slot, e.CreatedAt)
	})
}

func (r *postgresEventRepository) FindByReceipt(ctx context.Context, receiptID string) ([]*storage.EventModel, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE receipt_id = $1 ORDER BY created_at`
	return QueryMany(r.pool, ctx, query, scanEvent, receiptID)
}

func (r *postgresEventRepository) FindByEventName(ctx context.Context, eventName string, limit int, offset int) ([]*storage.EventModel, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_name = $1 ORDER BY slot DESC LIMIT $2 OFFSET $3`
	return QueryMany(r.pool, ctx, query, scanEvent, eventName, limit, offset)
}

func scanEvent(rows pgx.Rows) (*storage.EventModel, error) {
	var event storage.EventModel
	var dataJSON []byte

	err := rows.Scan(
		&event.ID, &event.ReceiptID, &event.ProgramID, &event.EventName,
		&dataJSON, &event.Slot, &event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(dataJSON, &event.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	return &event, nil
}
