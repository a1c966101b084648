package solana

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/internal/pool"
	"github.com/lugondev/go-fixedswap/internal/program"
	"github.com/lugondev/go-fixedswap/pkg/log"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

// Client wraps the Solana RPC client
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
}

// NewClient creates a new Solana client
func NewClient(endpoint string) *Client {
	return &Client{
		rpc:        rpc.New(endpoint),
		commitment: rpc.CommitmentConfirmed,
	}
}

// PoolAccount is a decoded pool account as stored on chain.
type PoolAccount struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Slot     uint64
	Record   *pool.Record
}

// TransactionEvents are the events a program emitted in one transaction.
type TransactionEvents struct {
	Signature solana.Signature
	Slot      uint64
	Failed    bool
	Logs      []string
	Events    []any
}

// GetBalance returns the balance of an account in lamports
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return result.Value, nil
}

// GetAccountInfo returns the account info for a given public key. A missing
// account yields AccountNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, cerrors.ErrAccountNotFound.WithDetails(map[string]any{"account": pubkey.String()})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}
	if result == nil || result.Value == nil {
		return nil, cerrors.ErrAccountNotFound.WithDetails(map[string]any{"account": pubkey.String()})
	}
	return result, nil
}

// FetchPool reads the pool account at address and decodes it. The account
// must be owned by programID.
func (c *Client) FetchPool(ctx context.Context, address, programID solana.PublicKey) (*PoolAccount, error) {
	info, err := c.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}

	if !info.Value.Owner.Equals(programID) {
		return nil, cerrors.ErrIncorrectProgramID.WithDetails(map[string]any{
			"account": address.String(),
			"owner":   info.Value.Owner.String(),
		})
	}

	record, err := pool.Decode(info.Value.Data.GetBinary())
	if err != nil {
		return nil, cerrors.Wrap(err, "decode pool")
	}

	return &PoolAccount{
		Address:  address,
		Owner:    info.Value.Owner,
		Lamports: info.Value.Lamports,
		Slot:     info.Context.Slot,
		Record:   record,
	}, nil
}

// FetchTokenAccount reads and decodes an SPL token account.
func (c *Client) FetchTokenAccount(ctx context.Context, address solana.PublicKey) (*token.Account, error) {
	info, err := c.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if !types.IsTokenProgram(info.Value.Owner) {
		return nil, cerrors.ErrAccountOwnedByWrongProgram.WithDetails(map[string]any{
			"account": address.String(),
			"owner":   info.Value.Owner.String(),
		})
	}

	var account token.Account
	if err := bin.NewBinDecoder(info.Value.Data.GetBinary()).Decode(&account); err != nil {
		return nil, cerrors.ErrAccountDidNotDeserialize.WithCause(err)
	}
	return &account, nil
}

// FetchEvents reads a transaction and decodes the events programID emitted
// in it. Undecodable payloads are left out.
func (c *Client) FetchEvents(ctx context.Context, sig solana.Signature, programID solana.PublicKey) (*TransactionEvents, error) {
	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	out := &TransactionEvents{Signature: sig, Slot: result.Slot}
	if result.Meta == nil {
		return out, nil
	}
	out.Failed = result.Meta.Err != nil
	out.Logs = result.Meta.LogMessages

	for _, d := range log.NewParser().ExtractProgramData(out.Logs) {
		if d.ProgramID != programID.String() {
			continue
		}
		event, err := program.DecodeEvent(d.Data)
		if err != nil {
			continue
		}
		out.Events = append(out.Events, event)
	}
	return out, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	// RPC client doesn't hold a connection to release
	return nil
}
