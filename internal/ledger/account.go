package ledger

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/lugondev/go-fixedswap/pkg/types"
)

// Account is the stored state of one ledger account.
type Account struct {
	// Lamports is the native balance.
	Lamports uint64

	// Owner is the program allowed to mutate the account.
	Owner solana.PublicKey

	// Data is program-owned state.
	Data []byte

	// Token is set for SPL token accounts. The token program keeps its
	// bookkeeping here instead of in Data.
	Token *token.Account

	// Executable marks program accounts.
	Executable bool
}

// NewWalletAccount returns a system-owned account holding lamports.
func NewWalletAccount(lamports uint64) *Account {
	return &Account{Lamports: lamports, Owner: types.SystemProgramID}
}

// NewTokenAccount returns a token account held by tokenProgram.
func NewTokenAccount(tokenProgram, mint, owner solana.PublicKey, amount uint64) *Account {
	return &Account{
		Owner: tokenProgram,
		Token: &token.Account{
			Mint:   mint,
			Owner:  owner,
			Amount: amount,
			State:  token.Initialized,
		},
	}
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Data != nil {
		c.Data = append([]byte(nil), a.Data...)
	}
	if a.Token != nil {
		t := *a.Token
		if a.Token.Delegate != nil {
			d := *a.Token.Delegate
			t.Delegate = &d
		}
		if a.Token.CloseAuthority != nil {
			ca := *a.Token.CloseAuthority
			t.CloseAuthority = &ca
		}
		if a.Token.IsNative != nil {
			n := *a.Token.IsNative
			t.IsNative = &n
		}
		c.Token = &t
	}
	return &c
}

func (a *Account) equal(b *Account) bool {
	if a.Lamports != b.Lamports || !a.Owner.Equals(b.Owner) || a.Executable != b.Executable {
		return false
	}
	if !bytes.Equal(a.Data, b.Data) {
		return false
	}
	if (a.Token == nil) != (b.Token == nil) {
		return false
	}
	if a.Token == nil {
		return true
	}
	return a.Token.Amount == b.Token.Amount &&
		a.Token.Owner.Equals(b.Token.Owner) &&
		a.Token.Mint.Equals(b.Token.Mint) &&
		a.Token.DelegatedAmount == b.Token.DelegatedAmount &&
		a.Token.State == b.Token.State &&
		optionalKeyEqual(a.Token.Delegate, b.Token.Delegate) &&
		optionalKeyEqual(a.Token.CloseAuthority, b.Token.CloseAuthority)
}

func optionalKeyEqual(a, b *solana.PublicKey) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(*b)
}

// AccountInfo is the capability an instruction holds on one account: its
// identity, the access it was granted and a working copy of its state.
// Infos for the same key within a transaction share the working copy.
type AccountInfo struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool
	*Account
}

// Meta returns the account meta describing the capability.
func (ai *AccountInfo) Meta() *solana.AccountMeta {
	return solana.NewAccountMeta(ai.Key, ai.IsWritable, ai.IsSigner)
}
