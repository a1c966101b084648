// Package authority derives the program-controlled address that is allowed to
// move pool funds.
//
// The authority is never stored. It is the program derived address of the seed
// list [pool] under the program id, and can be reproduced by anyone who knows the
// pool key and its bump, but only the program itself can present the seeds as a
// signature.
package authority

import (
	"github.com/gagliardetto/solana-go"

	cerrors "github.com/lugondev/go-fixedswap/internal/errors"
)

// Find searches bump values from 255 down until the seeds [pool, bump] yield an
// off-curve address. It is used once, when a pool is set up.
func Find(programID, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{pool.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, cerrors.ErrInvalidProgramAddress.WithCause(err)
	}
	return addr, bump, nil
}

// Derive recomputes the authority for a stored bump.
func Derive(programID, pool solana.PublicKey, bump uint8) (solana.PublicKey, error) {
	addr, err := solana.CreateProgramAddress(Seeds{Pool: pool, Bump: bump}.SignerSeeds(), programID)
	if err != nil {
		return solana.PublicKey{}, cerrors.ErrInvalidProgramAddress.WithCause(err)
	}
	return addr, nil
}

// Verify requires candidate to equal the authority derived from pool and bump.
func Verify(programID, pool solana.PublicKey, bump uint8, candidate solana.PublicKey) error {
	addr, err := Derive(programID, pool, bump)
	if err != nil {
		return err
	}
	if !addr.Equals(candidate) {
		return cerrors.ErrInvalidProgramAddress.WithDetails(map[string]any{
			"expected": addr.String(),
			"got":      candidate.String(),
		})
	}
	return nil
}

// Seeds is the proof presented to the asset transfer service in place of a
// private key.
type Seeds struct {
	Pool solana.PublicKey
	Bump uint8
}

// SignerSeeds returns the seed list including the bump.
func (s Seeds) SignerSeeds() [][]byte {
	return [][]byte{s.Pool.Bytes(), {s.Bump}}
}

// Authorization pairs the derived authority with the seeds that prove it.
type Authorization struct {
	Authority solana.PublicKey
	Seeds     Seeds
}
