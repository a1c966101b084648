package pool

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
)

// View reads fields of an encoded pool account in place.
type View struct {
	buffer []byte
}

// NewView wraps buffer without copying it. The buffer must hold at least Size
// bytes and start with the pool account discriminator; a zeroed slot is
// rejected since it carries no fields yet.
func NewView(buffer []byte) (*View, error) {
	if len(buffer) < Size {
		return nil, cerrors.ErrAccountDidNotDeserialize.WithDetails(map[string]any{"size": len(buffer), "want": Size})
	}
	if !bytes.Equal(buffer[:8], Discriminator[:]) {
		return nil, cerrors.ErrAccountDiscriminatorMismatch
	}
	return &View{buffer: buffer}, nil
}

// Initialized reports the initialized flag.
func (v *View) Initialized() bool {
	return v.buffer[offsetInitialized] != 0
}

// Rate returns quote units paid per native unit.
func (v *View) Rate() uint64 {
	return binary.LittleEndian.Uint64(v.buffer[offsetRate : offsetRate+8])
}

// NativeDepositAccount returns the account collecting deposits.
func (v *View) NativeDepositAccount() solana.PublicKey {
	return v.key(offsetNativeAccount)
}

// QuoteMint returns the mint paid out.
func (v *View) QuoteMint() solana.PublicKey {
	return v.key(offsetQuoteMint)
}

// QuoteReserveAccount returns the token account the pool pays from.
func (v *View) QuoteReserveAccount() solana.PublicKey {
	return v.key(offsetQuoteReserve)
}

// AuthorityBump returns the bump the pool authority is derived with.
func (v *View) AuthorityBump() uint8 {
	return v.buffer[offsetBump]
}

// AssetProgramID returns the token program swaps must use.
func (v *View) AssetProgramID() solana.PublicKey {
	return v.key(offsetAssetProgram)
}

func (v *View) key(offset int) solana.PublicKey {
	return solana.PublicKeyFromBytes(v.buffer[offset : offset+solana.PublicKeyLength])
}
