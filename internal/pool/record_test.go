package pool

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
)

func sampleRecord() *Record {
	return &Record{
		Initialized:          true,
		Rate:                 123456789,
		NativeDepositAccount: solana.NewWallet().PublicKey(),
		QuoteMint:            solana.NewWallet().PublicKey(),
		QuoteReserveAccount:  solana.NewWallet().PublicKey(),
		AuthorityBump:        254,
		AssetProgramID:       solana.TokenProgramID,
	}
}

func TestRecordLayout(t *testing.T) {
	rec := sampleRecord()
	data, err := rec.Encode()
	require.NoError(t, err)
	require.Len(t, data, Size)
	require.Equal(t, 146, Size)

	assert.Equal(t, Discriminator[:], data[:8])
	assert.Equal(t, byte(1), data[offsetInitialized])
	assert.Equal(t, rec.Rate, binary.LittleEndian.Uint64(data[offsetRate:]))
	assert.Equal(t, rec.NativeDepositAccount[:], data[offsetNativeAccount:offsetNativeAccount+32])
	assert.Equal(t, rec.QuoteMint[:], data[offsetQuoteMint:offsetQuoteMint+32])
	assert.Equal(t, rec.QuoteReserveAccount[:], data[offsetQuoteReserve:offsetQuoteReserve+32])
	assert.Equal(t, rec.AuthorityBump, data[offsetBump])
	assert.Equal(t, rec.AssetProgramID[:], data[offsetAssetProgram:offsetAssetProgram+32])
}

func TestViewAgreesWithDecode(t *testing.T) {
	key := rapid.Custom(func(t *rapid.T) solana.PublicKey {
		return solana.PublicKeyFromBytes(rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, "key"))
	})
	rapid.Check(t, func(t *rapid.T) {
		rec := &Record{
			Initialized:          true,
			Rate:                 rapid.Uint64().Draw(t, "rate"),
			NativeDepositAccount: key.Draw(t, "native"),
			QuoteMint:            key.Draw(t, "mint"),
			QuoteReserveAccount:  key.Draw(t, "reserve"),
			AuthorityBump:        rapid.Uint8().Draw(t, "bump"),
			AssetProgramID:       key.Draw(t, "asset_program"),
		}
		data, err := rec.Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if *got != *rec {
			t.Fatalf("decoded %+v, want %+v", got, rec)
		}
		v, err := NewView(data)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		if v.Rate() != rec.Rate || v.AuthorityBump() != rec.AuthorityBump || !v.QuoteMint().Equals(rec.QuoteMint) {
			t.Fatalf("view disagrees with record")
		}
	})
}

func TestDecodeMatchesView(t *testing.T) {
	rec := sampleRecord()
	data, err := rec.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)

	view, err := NewView(data)
	require.NoError(t, err)
	assert.Equal(t, decoded.Initialized, view.Initialized())
	assert.Equal(t, decoded.Rate, view.Rate())
	assert.Equal(t, decoded.NativeDepositAccount, view.NativeDepositAccount())
	assert.Equal(t, decoded.QuoteMint, view.QuoteMint())
	assert.Equal(t, decoded.QuoteReserveAccount, view.QuoteReserveAccount())
	assert.Equal(t, decoded.AuthorityBump, view.AuthorityBump())
	assert.Equal(t, decoded.AssetProgramID, view.AssetProgramID())
}

func TestLoad(t *testing.T) {
	encoded, err := sampleRecord().Encode()
	require.NoError(t, err)

	wrongDisc := append([]byte(nil), encoded...)
	wrongDisc[0] ^= 0xff

	tests := []struct {
		name      string
		data      []byte
		wantState State
		wantErr   error
	}{
		{name: "zeroed slot", data: make([]byte, Size), wantState: Uninitialized},
		{name: "zeroed slot with trailing space", data: make([]byte, Size+16), wantState: Uninitialized},
		{name: "initialized", data: encoded, wantState: Initialized},
		{name: "short", data: make([]byte, Size-1), wantErr: cerrors.ErrAccountDidNotDeserialize},
		{name: "foreign discriminator", data: wrongDisc, wantErr: cerrors.ErrAccountDiscriminatorMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, state, err := Load(tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantState, rec.State())
		})
	}
}

func TestDecodeRejectsUninitialized(t *testing.T) {
	_, err := Decode(make([]byte, Size))
	require.ErrorIs(t, err, cerrors.ErrAccountNotInitialized)
}

func TestWrite(t *testing.T) {
	rec := sampleRecord()

	require.ErrorIs(t, rec.Write(make([]byte, 10)), cerrors.ErrAccountDidNotDeserialize)

	dst := make([]byte, Size)
	require.NoError(t, rec.Write(dst))
	got, err := Decode(dst)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestNewViewRejects(t *testing.T) {
	_, err := NewView(make([]byte, 4))
	assert.ErrorIs(t, err, cerrors.ErrAccountDidNotDeserialize)

	_, err = NewView(make([]byte, Size))
	assert.ErrorIs(t, err, cerrors.ErrAccountDiscriminatorMismatch)

	// Load and NewView agree on the error for the same bad bytes.
	bad := make([]byte, Size)
	bad[0] = 1
	_, _, loadErr := Load(bad)
	_, viewErr := NewView(bad)
	loadCode, ok := cerrors.CodeOf(loadErr)
	require.True(t, ok)
	viewCode, ok := cerrors.CodeOf(viewErr)
	require.True(t, ok)
	assert.Equal(t, loadCode, viewCode)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Uninitialized", Uninitialized.String())
	assert.Equal(t, "Initialized", Initialized.String())
	assert.Equal(t, "State(9)", State(9).String())
}
