package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/lugondev/go-fixedswap/internal/program"
)

type PoolModel struct {
	ID                   string    `json:"id" bson:"_id,omitempty" db:"id"`
	Address              string    `json:"address" bson:"address" db:"address"`
	Authority            string    `json:"authority" bson:"authority" db:"authority"`
	NativeDepositAccount string    `json:"native_deposit_account" bson:"native_deposit_account" db:"native_deposit_account"`
	QuoteMint            string    `json:"quote_mint" bson:"quote_mint" db:"quote_mint"`
	QuoteReserveAccount  string    `json:"quote_reserve_account" bson:"quote_reserve_account" db:"quote_reserve_account"`
	Rate                 uint64    `json:"rate" bson:"rate" db:"rate"`
	ReceiptID            string    `json:"receipt_id" bson:"receipt_id" db:"receipt_id"`
	Slot                 uint64    `json:"slot" bson:"slot" db:"slot"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

type SwapModel struct {
	ID        string    `json:"id" bson:"_id,omitempty" db:"id"`
	ReceiptID string    `json:"receipt_id" bson:"receipt_id" db:"receipt_id"`
	Pool      string    `json:"pool" bson:"pool" db:"pool"`
	User      string    `json:"user" bson:"user" db:"user"`
	AmountIn  uint64    `json:"amount_in" bson:"amount_in" db:"amount_in"`
	AmountOut uint64    `json:"amount_out" bson:"amount_out" db:"amount_out"`
	Slot      uint64    `json:"slot" bson:"slot" db:"slot"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

type EventModel struct {
	ID        string                 `json:"id" bson:"_id,omitempty" db:"id"`
	ReceiptID string                 `json:"receipt_id" bson:"receipt_id" db:"receipt_id"`
	ProgramID string                 `json:"program_id" bson:"program_id" db:"program_id"`
	EventName string                 `json:"event_name" bson:"event_name" db:"event_name"`
	Data      map[string]interface{} `json:"data" bson:"data" db:"data"`
	Slot      uint64                 `json:"slot" bson:"slot" db:"slot"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at" db:"created_at"`
}

// PoolVolume aggregates the swaps recorded for one pool.
type PoolVolume struct {
	Pool      string `json:"pool" bson:"_id"`
	Swaps     uint64 `json:"swaps" bson:"swaps"`
	AmountIn  uint64 `json:"amount_in" bson:"amount_in"`
	AmountOut uint64 `json:"amount_out" bson:"amount_out"`
}

func PoolInitializedToModel(event *program.PoolInitializedEvent, receiptID string, slot uint64) *PoolModel {
	return &PoolModel{
		ID:                   event.Pool.String(),
		Address:              event.Pool.String(),
		Authority:            event.Authority.String(),
		NativeDepositAccount: event.NativeDepositAccount.String(),
		QuoteMint:            event.QuoteMint.String(),
		QuoteReserveAccount:  event.QuoteReserveAccount.String(),
		Rate:                 event.Rate,
		ReceiptID:            receiptID,
		Slot:                 slot,
		CreatedAt:            time.Now(),
	}
}

func SwapExecutedToModel(event *program.SwapExecutedEvent, receiptID string, slot uint64) *SwapModel {
	return &SwapModel{
		ID:        uuid.NewString(),
		ReceiptID: receiptID,
		Pool:      event.Pool.String(),
		User:      event.User.String(),
		AmountIn:  event.AmountIn,
		AmountOut: event.AmountOut,
		Slot:      slot,
		CreatedAt: time.Now(),
	}
}
