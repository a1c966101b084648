package program

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Event discriminators.
var (
	PoolInitializedEventDiscriminator = discriminator("event", "PoolInitialized")
	SwapExecutedEventDiscriminator    = discriminator("event", "SwapExecuted")
)

// Event is a typed body emitted as a "Program data:" log line.
type Event interface {
	bin.BinaryMarshaler
	Discriminator() Discriminator
}

// EncodeEvent returns the discriminator followed by the Borsh body of e.
func EncodeEvent(e Event) ([]byte, error) {
	disc := e.Discriminator()
	buf := bytes.NewBuffer(nil)
	buf.Write(disc[:])
	if err := e.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode event %x: %w", disc[:], err)
	}
	return buf.Bytes(), nil
}

// PoolInitializedEvent is emitted once per pool.
type PoolInitializedEvent struct {
	Pool                 solana.PublicKey `json:"pool"`
	Authority            solana.PublicKey `json:"authority"`
	NativeDepositAccount solana.PublicKey `json:"native_deposit_account"`
	QuoteMint            solana.PublicKey `json:"quote_mint"`
	QuoteReserveAccount  solana.PublicKey `json:"quote_reserve_account"`
	Rate                 uint64           `json:"rate"`
}

func (e *PoolInitializedEvent) Discriminator() Discriminator {
	return PoolInitializedEventDiscriminator
}

func (e *PoolInitializedEvent) Encode() ([]byte, error) {
	return EncodeEvent(e)
}

func (e PoolInitializedEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	for _, key := range []solana.PublicKey{e.Pool, e.Authority, e.NativeDepositAccount, e.QuoteMint, e.QuoteReserveAccount} {
		if err := encoder.WriteBytes(key[:], false); err != nil {
			return err
		}
	}
	return encoder.WriteUint64(e.Rate, binary.LittleEndian)
}

func (e *PoolInitializedEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	for _, key := range []*solana.PublicKey{&e.Pool, &e.Authority, &e.NativeDepositAccount, &e.QuoteMint, &e.QuoteReserveAccount} {
		if err = readKey(decoder, key); err != nil {
			return err
		}
	}
	e.Rate, err = decoder.ReadUint64(binary.LittleEndian)
	return err
}

// SwapExecutedEvent is emitted for every settled swap.
type SwapExecutedEvent struct {
	Pool      solana.PublicKey `json:"pool"`
	User      solana.PublicKey `json:"user"`
	AmountIn  uint64           `json:"amount_in"`
	AmountOut uint64           `json:"amount_out"`
}

func (e *SwapExecutedEvent) Discriminator() Discriminator {
	return SwapExecutedEventDiscriminator
}

func (e *SwapExecutedEvent) Encode() ([]byte, error) {
	return EncodeEvent(e)
}

func (e SwapExecutedEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(e.Pool[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(e.User[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(e.AmountIn, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(e.AmountOut, binary.LittleEndian)
}

func (e *SwapExecutedEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if err = readKey(decoder, &e.Pool); err != nil {
		return err
	}
	if err = readKey(decoder, &e.User); err != nil {
		return err
	}
	if e.AmountIn, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	e.AmountOut, err = decoder.ReadUint64(binary.LittleEndian)
	return err
}

func readKey(decoder *bin.Decoder, key *solana.PublicKey) error {
	b, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(key[:], b)
	return nil
}

// DecodeEvent decodes "Program data:" bytes into a *PoolInitializedEvent or a
// *SwapExecutedEvent.
func DecodeEvent(data []byte) (Event, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("data too short for event discriminator")
	}
	var disc Discriminator
	copy(disc[:], data[:8])

	var event interface {
		Event
		bin.BinaryUnmarshaler
	}
	switch disc {
	case PoolInitializedEventDiscriminator:
		event = &PoolInitializedEvent{}
	case SwapExecutedEventDiscriminator:
		event = &SwapExecutedEvent{}
	default:
		return nil, fmt.Errorf("unknown event discriminator %x", disc[:])
	}

	if err := event.UnmarshalWithDecoder(bin.NewBorshDecoder(data[8:])); err != nil {
		return nil, fmt.Errorf("failed to decode event %x: %w", disc[:], err)
	}
	return event, nil
}
