// Package errors defines the error taxonomy of the swap program and its host ledger.
//
// Two families share one Error type. Program errors are raised by pool
// initialization and swap execution and carry codes in the custom range starting
// at ProgramErrorOffset. Platform errors are raised by the ledger collaborator
// (account ownership, signatures, deserialization, funds) and carry small codes.
// Every error is terminal for the instruction that raised it.
package errors

import (
	"errors"
	"fmt"
)

// ProgramErrorOffset is the first code of program-defined errors.
const ProgramErrorOffset uint32 = 6000

// Program error codes.
const (
	CodeAlreadyInUse uint32 = ProgramErrorOffset + iota
	CodeInvalidProgramAddress
	CodeInvalidOwner
	CodeInvalidDelegate
	CodeInvalidCloseAuthority
	CodeInvalidNativeAccount
	CodeInvalidTokenAccount
	CodeInvalidInput
	CodeIncorrectTokenProgramID
	CodeArithmeticOverflow
)

// Platform error codes.
const (
	CodeIncorrectProgramID uint32 = iota + 1
	CodeMissingRequiredSignature
	CodeAccountNotMutable
	CodeAccountOwnedByWrongProgram
	CodeAccountNotInitialized
	CodeAccountDiscriminatorMismatch
	CodeAccountDidNotDeserialize
	CodeInstructionFallbackNotFound
	CodeInstructionDidNotDeserialize
	CodeNotEnoughAccountKeys
	CodeAccountNotFound
	CodeAccountAlreadyExists
	CodeInsufficientFunds
	CodeMintMismatch
	CodeUnsupportedProgramID
	CodePrivilegeEscalation
	CodeReadonlyAccountModified
	CodeAccountFrozen
	CodeOwnerMismatch
	CodeCallDepthExceeded
)

// Error is a coded error raised by the program or the ledger.
type Error struct {
	// Code identifies the failed invariant.
	Code uint32

	// Name is the stable identifier of the code, e.g. "InvalidOwner".
	Name string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Name, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Name, e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsProgramError reports whether the code lies in the program-defined range.
func (e *Error) IsProgramError() bool {
	return e.Code >= ProgramErrorOffset
}

// WithCause returns a copy of the error carrying cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details map[string]any) *Error {
	c := *e
	c.Details = details
	return &c
}

// NewError creates a new Error.
func NewError(code uint32, name, message string) *Error {
	return &Error{
		Code:    code,
		Name:    name,
		Message: message,
	}
}

// Program errors.
var (
	ErrAlreadyInUse            = NewError(CodeAlreadyInUse, "AlreadyInUse", "swap account already in use")
	ErrInvalidProgramAddress   = NewError(CodeInvalidProgramAddress, "InvalidProgramAddress", "invalid program address generated from bump seed and key")
	ErrInvalidOwner            = NewError(CodeInvalidOwner, "InvalidOwner", "input account owner is not the program address")
	ErrInvalidDelegate         = NewError(CodeInvalidDelegate, "InvalidDelegate", "token account has a delegate")
	ErrInvalidCloseAuthority   = NewError(CodeInvalidCloseAuthority, "InvalidCloseAuthority", "token account has a close authority")
	ErrInvalidNativeAccount    = NewError(CodeInvalidNativeAccount, "InvalidNativeAccount", "native account does not match pool")
	ErrInvalidTokenAccount     = NewError(CodeInvalidTokenAccount, "InvalidTokenAccount", "token account does not match pool")
	ErrInvalidInput            = NewError(CodeInvalidInput, "InvalidInput", "native and quote accounts must differ")
	ErrIncorrectTokenProgramID = NewError(CodeIncorrectTokenProgramID, "IncorrectTokenProgramId", "token program does not match pool")
	ErrArithmeticOverflow      = NewError(CodeArithmeticOverflow, "ArithmeticOverflow", "amount out exceeds u64")
)

// Platform errors.
var (
	ErrIncorrectProgramID           = NewError(CodeIncorrectProgramID, "IncorrectProgramId", "account is not owned by the executing program")
	ErrMissingRequiredSignature     = NewError(CodeMissingRequiredSignature, "MissingRequiredSignature", "missing required signature")
	ErrAccountNotMutable            = NewError(CodeAccountNotMutable, "AccountNotMutable", "account is not writable")
	ErrAccountOwnedByWrongProgram   = NewError(CodeAccountOwnedByWrongProgram, "AccountOwnedByWrongProgram", "account is owned by a different program than expected")
	ErrAccountNotInitialized        = NewError(CodeAccountNotInitialized, "AccountNotInitialized", "account is not initialized")
	ErrAccountDiscriminatorMismatch = NewError(CodeAccountDiscriminatorMismatch, "AccountDiscriminatorMismatch", "account discriminator did not match")
	ErrAccountDidNotDeserialize     = NewError(CodeAccountDidNotDeserialize, "AccountDidNotDeserialize", "failed to deserialize account")
	ErrInstructionFallbackNotFound  = NewError(CodeInstructionFallbackNotFound, "InstructionFallbackNotFound", "unknown instruction")
	ErrInstructionDidNotDeserialize = NewError(CodeInstructionDidNotDeserialize, "InstructionDidNotDeserialize", "failed to deserialize instruction")
	ErrNotEnoughAccountKeys         = NewError(CodeNotEnoughAccountKeys, "NotEnoughAccountKeys", "not enough account keys given to the instruction")
	ErrAccountNotFound              = NewError(CodeAccountNotFound, "AccountNotFound", "account not found")
	ErrAccountAlreadyExists         = NewError(CodeAccountAlreadyExists, "AccountAlreadyExists", "account already exists")
	ErrInsufficientFunds            = NewError(CodeInsufficientFunds, "InsufficientFunds", "insufficient funds")
	ErrMintMismatch                 = NewError(CodeMintMismatch, "MintMismatch", "account not associated with this mint")
	ErrUnsupportedProgramID         = NewError(CodeUnsupportedProgramID, "UnsupportedProgramId", "unsupported program id")
	ErrPrivilegeEscalation          = NewError(CodePrivilegeEscalation, "PrivilegeEscalation", "cross-program invocation with unauthorized signer or writable account")
	ErrReadonlyAccountModified      = NewError(CodeReadonlyAccountModified, "ReadonlyAccountModified", "instruction modified a read-only account")
	ErrAccountFrozen                = NewError(CodeAccountFrozen, "AccountFrozen", "token account is frozen")
	ErrOwnerMismatch                = NewError(CodeOwnerMismatch, "OwnerMismatch", "owner does not match")
	ErrCallDepthExceeded            = NewError(CodeCallDepthExceeded, "CallDepth", "cross-program invocation call depth too deep")
)

var byCode = func() map[uint32]*Error {
	m := make(map[uint32]*Error)
	for _, e := range []*Error{
		ErrAlreadyInUse, ErrInvalidProgramAddress, ErrInvalidOwner, ErrInvalidDelegate,
		ErrInvalidCloseAuthority, ErrInvalidNativeAccount, ErrInvalidTokenAccount, ErrInvalidInput,
		ErrIncorrectTokenProgramID, ErrArithmeticOverflow,
		ErrIncorrectProgramID, ErrMissingRequiredSignature, ErrAccountNotMutable,
		ErrAccountOwnedByWrongProgram, ErrAccountNotInitialized, ErrAccountDiscriminatorMismatch,
		ErrAccountDidNotDeserialize, ErrInstructionFallbackNotFound, ErrInstructionDidNotDeserialize,
		ErrNotEnoughAccountKeys, ErrAccountNotFound, ErrAccountAlreadyExists, ErrInsufficientFunds,
		ErrMintMismatch, ErrUnsupportedProgramID, ErrPrivilegeEscalation, ErrReadonlyAccountModified,
		ErrAccountFrozen, ErrOwnerMismatch, ErrCallDepthExceeded,
	} {
		m[e.Code] = e
	}
	return m
}()

// FromCode returns the registered error for code, or nil.
func FromCode(code uint32) *Error {
	return byCode[code]
}

// CodeOf extracts the code of the first Error in err's chain.
func CodeOf(err error) (uint32, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
