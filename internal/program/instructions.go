package program

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
	"github.com/lugondev/go-fixedswap/pkg/types"
)

// Discriminator is the 8-byte prefix selecting an instruction, account or event type.
type Discriminator [8]byte

func discriminator(namespace, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d Discriminator
	copy(d[:], sum[:8])
	return d
}

// Instruction discriminators.
var (
	InitPoolSwapDiscriminator = discriminator("global", "init_pool_swap")
	SwapDiscriminator         = discriminator("global", "swap")
)

// InitPoolSwapKeys lists the accounts of an InitPoolSwap instruction.
type InitPoolSwapKeys struct {
	Pool          solana.PublicKey
	Authority     solana.PublicKey
	QuoteReserve  solana.PublicKey
	NativeDeposit solana.PublicKey
	AssetProgram  solana.PublicKey
}

// SwapKeys lists the accounts of a Swap instruction.
type SwapKeys struct {
	Pool         solana.PublicKey
	Authority    solana.PublicKey
	User         solana.PublicKey
	UserQuote    solana.PublicKey
	PoolNative   solana.PublicKey
	PoolQuote    solana.PublicKey
	AssetProgram solana.PublicKey
}

// NewInitPoolSwapInstruction builds the instruction that configures a pool.
// The pool account must sign.
func NewInitPoolSwapInstruction(programID solana.PublicKey, keys InitPoolSwapKeys, rate uint64) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.Meta(keys.Pool).WRITE().SIGNER(),
			solana.Meta(keys.Authority).WRITE(),
			solana.Meta(keys.QuoteReserve).WRITE(),
			solana.Meta(keys.NativeDeposit).WRITE(),
			solana.Meta(keys.AssetProgram),
		},
		encodeU64Instruction(InitPoolSwapDiscriminator, rate),
	)
}

// NewSwapInstruction builds the instruction that swaps amountIn native units
// for quote units. The user wallet must sign.
func NewSwapInstruction(programID solana.PublicKey, keys SwapKeys, amountIn uint64) solana.Instruction {
	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.Meta(keys.Pool),
			solana.Meta(keys.Authority),
			solana.Meta(keys.User).WRITE().SIGNER(),
			solana.Meta(keys.UserQuote).WRITE(),
			solana.Meta(keys.PoolNative).WRITE(),
			solana.Meta(keys.PoolQuote).WRITE(),
			solana.Meta(keys.AssetProgram),
			solana.Meta(types.SystemProgramID),
		},
		encodeU64Instruction(SwapDiscriminator, amountIn),
	)
}

func encodeU64Instruction(disc Discriminator, arg uint64) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 16))
	buf.Write(disc[:])
	// Writes to a bytes.Buffer do not fail.
	_ = bin.NewBorshEncoder(buf).WriteUint64(arg, binary.LittleEndian)
	return buf.Bytes()
}

// DecodeInstruction splits instruction data into its discriminator and u64 argument.
func DecodeInstruction(data []byte) (Discriminator, uint64, error) {
	var disc Discriminator
	if len(data) < len(disc) {
		return disc, 0, cerrors.ErrInstructionFallbackNotFound
	}
	copy(disc[:], data)
	if disc != InitPoolSwapDiscriminator && disc != SwapDiscriminator {
		return disc, 0, cerrors.ErrInstructionFallbackNotFound
	}

	arg, err := bin.NewBorshDecoder(data[len(disc):]).ReadUint64(binary.LittleEndian)
	if err != nil {
		return disc, 0, cerrors.ErrInstructionDidNotDeserialize.WithCause(err)
	}
	return disc, arg, nil
}

// InstructionName returns the name of the instruction selected by disc.
func InstructionName(disc Discriminator) string {
	switch disc {
	case InitPoolSwapDiscriminator:
		return "InitPoolSwap"
	case SwapDiscriminator:
		return "Swap"
	default:
		return "Unknown"
	}
}
