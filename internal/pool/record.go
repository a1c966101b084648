// Package pool defines the persisted record of a fixed-rate swap pool and its
// stable on-chain layout.
//
// Layout (little endian, Borsh):
//
//	offset  size  field
//	0       8     account discriminator, sha256("account:PoolInfo")[:8]
//	8       1     initialized
//	9       8     rate
//	17      32    native deposit account
//	49      32    quote mint
//	81      32    quote reserve account
//	113     1     authority bump
//	114     32    asset transfer program id
//
// External readers address pools by parsing this layout, so it must not change.
package pool

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
)

// Size is the encoded size of a pool account, discriminator included.
const Size = 8 + 1 + 8 + 32 + 32 + 32 + 1 + 32

// Field offsets within an encoded pool account.
const (
	offsetInitialized   = 8
	offsetRate          = 9
	offsetNativeAccount = 17
	offsetQuoteMint     = 49
	offsetQuoteReserve  = 81
	offsetBump          = 113
	offsetAssetProgram  = 114
)

// Discriminator prefixes every initialized pool account.
var Discriminator = accountDiscriminator("PoolInfo")

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// State is the lifecycle tag of a pool slot.
type State uint8

const (
	// Uninitialized is a zeroed slot awaiting its single write.
	Uninitialized State = iota
	// Initialized is a configured pool. There is no transition out of it.
	Initialized
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Initialized:
		return "Initialized"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Record is the configuration of one pool. The controlling authority is not a
// field; it is re-derived from the pool key and AuthorityBump.
type Record struct {
	// Initialized guards against re-initialization.
	Initialized bool `json:"initialized"`

	// Rate is the number of quote units paid per native unit deposited.
	Rate uint64 `json:"rate"`

	// NativeDepositAccount accumulates deposited native value.
	NativeDepositAccount solana.PublicKey `json:"native_deposit_account"`

	// QuoteMint is the asset kind paid out by the pool.
	QuoteMint solana.PublicKey `json:"quote_mint"`

	// QuoteReserveAccount holds the quote asset reserve.
	QuoteReserveAccount solana.PublicKey `json:"quote_reserve_account"`

	// AuthorityBump re-derives the pool authority.
	AuthorityBump uint8 `json:"authority_bump"`

	// AssetProgramID is the transfer service the pool must be used with.
	AssetProgramID solana.PublicKey `json:"asset_program_id"`
}

// State returns the lifecycle tag of the record.
func (r *Record) State() State {
	if r.Initialized {
		return Initialized
	}
	return Uninitialized
}

// MarshalWithEncoder writes the record fields in layout order.
func (r Record) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBool(r.Initialized); err != nil {
		return err
	}
	if err := encoder.WriteUint64(r.Rate, binary.LittleEndian); err != nil {
		return err
	}
	for _, key := range []solana.PublicKey{r.NativeDepositAccount, r.QuoteMint, r.QuoteReserveAccount} {
		if err := encoder.WriteBytes(key[:], false); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint8(r.AuthorityBump); err != nil {
		return err
	}
	return encoder.WriteBytes(r.AssetProgramID[:], false)
}

// UnmarshalWithDecoder reads the record fields in layout order.
func (r *Record) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if r.Initialized, err = decoder.ReadBool(); err != nil {
		return err
	}
	if r.Rate, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	for _, key := range []*solana.PublicKey{&r.NativeDepositAccount, &r.QuoteMint, &r.QuoteReserveAccount} {
		b, err := decoder.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		copy(key[:], b)
	}
	if r.AuthorityBump, err = decoder.ReadUint8(); err != nil {
		return err
	}
	b, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(r.AssetProgramID[:], b)
	return nil
}

// Encode returns the account bytes of the record, discriminator included.
func (r *Record) Encode() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, Size))
	buf.Write(Discriminator[:])
	if err := r.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode pool record: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes the record into dst, which must be at least Size bytes.
func (r *Record) Write(dst []byte) error {
	if len(dst) < Size {
		return cerrors.ErrAccountDidNotDeserialize.WithDetails(map[string]any{"size": len(dst), "want": Size})
	}
	data, err := r.Encode()
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Decode parses an initialized pool account. Zeroed slots are rejected with
// AccountNotInitialized; use Load to accept them.
func Decode(data []byte) (*Record, error) {
	rec, state, err := Load(data)
	if err != nil {
		return nil, err
	}
	if state != Initialized {
		return nil, cerrors.ErrAccountNotInitialized
	}
	return rec, nil
}

// Load parses a pool slot that may still be zeroed.
func Load(data []byte) (*Record, State, error) {
	if len(data) < Size {
		return nil, Uninitialized, cerrors.ErrAccountDidNotDeserialize.WithDetails(map[string]any{"size": len(data), "want": Size})
	}
	if isZero(data[:Size]) {
		return &Record{}, Uninitialized, nil
	}
	if !bytes.Equal(data[:8], Discriminator[:]) {
		return nil, Uninitialized, cerrors.ErrAccountDiscriminatorMismatch
	}

	rec := &Record{}
	if err := rec.UnmarshalWithDecoder(bin.NewBorshDecoder(data[8:Size])); err != nil {
		return nil, Uninitialized, cerrors.ErrAccountDidNotDeserialize.WithCause(err)
	}
	return rec, rec.State(), nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
