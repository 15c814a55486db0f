package core

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the services wraps exactly one of these.
var (
	ErrValidation    = errors.New("validation error")
	ErrAuthorization = errors.New("authorization error")
	ErrCrypto        = errors.New("crypto error")
	ErrFormat        = errors.New("format error")
	ErrNetwork       = errors.New("network error")
	ErrChain         = errors.New("chain error")
)

var (
	ErrAddressRequired   = fmt.Errorf("%w: address required", ErrValidation)
	ErrInvalidAddress    = fmt.Errorf("%w: invalid ethereum address", ErrValidation)
	ErrUnauthorized      = fmt.Errorf("%w: unauthorized address", ErrAuthorization)
	ErrInvalidNonce      = fmt.Errorf("%w: invalid or expired nonce", ErrAuthorization)
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrAuthorization)
	ErrInvalidSignature  = fmt.Errorf("%w: malformed signature", ErrAuthorization)
	ErrTokenExpired      = fmt.Errorf("%w: token has expired", ErrAuthorization)
	ErrTokenInvalidated  = fmt.Errorf("%w: token has been invalidated", ErrAuthorization)
	ErrInvalidToken      = fmt.Errorf("%w: invalid token", ErrAuthorization)
	ErrForbidden         = fmt.Errorf("%w: role not permitted", ErrAuthorization)

	ErrDecrypt       = fmt.Errorf("%w: message authentication failed", ErrCrypto)
	ErrInvalidKey    = fmt.Errorf("%w: invalid key material", ErrCrypto)
	ErrShortArtifact = fmt.Errorf("%w: artifact shorter than nonce", ErrFormat)
	ErrInvalidHex    = fmt.Errorf("%w: invalid hex encoding", ErrFormat)
	ErrInvalidLink   = fmt.Errorf("%w: invalid verification link", ErrFormat)

	ErrBlobNotFound        = fmt.Errorf("%w: blob not found", ErrNetwork)
	ErrCertificateNotFound = fmt.Errorf("%w: certificate not found", ErrChain)
	ErrTxReverted          = fmt.Errorf("%w: transaction reverted", ErrChain)
	ErrIDExtraction        = fmt.Errorf("%w: id-extraction-failed", ErrChain)
)

// IDExtractionError reports a ledger write that was confirmed but whose
// certificate id could not be read from the emitted event. TxHash lets an
// operator look the id up manually.
type IDExtractionError struct {
	TxHash string
	Err    error
}

func (e *IDExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (tx %s): %v", ErrIDExtraction, e.TxHash, e.Err)
	}
	return fmt.Sprintf("%s (tx %s)", ErrIDExtraction, e.TxHash)
}

func (e *IDExtractionError) Is(target error) bool {
	return target == ErrIDExtraction || target == ErrChain
}

func (e *IDExtractionError) Unwrap() error {
	return e.Err
}

// Category returns the top-level category an error belongs to, or nil when
// the error is not categorized.
func Category(err error) error {
	for _, c := range []error{ErrValidation, ErrAuthorization, ErrCrypto, ErrFormat, ErrNetwork, ErrChain} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}
