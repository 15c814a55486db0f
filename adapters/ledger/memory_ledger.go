package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Kizaaaa/certichain/core"
)

// MemoryLedger is an in-process registry. Ids start at 1 like the contract.
type MemoryLedger struct {
	mu     sync.RWMutex
	certs  map[core.CertificateID]*core.Certificate
	next   core.CertificateID
	issuer string
	now    func() time.Time

	// IssueErr, when set, fails the next IssueCertificate calls
	IssueErr error
	// DropIssuedEvent confirms writes without reporting the id
	DropIssuedEvent bool
	// Fee is charged on every confirmed write
	Fee decimal.Decimal

	issueCalls int
}

// NewMemoryLedger creates an empty ledger whose records name issuer
func NewMemoryLedger(issuer string) *MemoryLedger {
	return &MemoryLedger{
		certs:  make(map[core.CertificateID]*core.Certificate),
		next:   1,
		issuer: issuer,
		now:    time.Now,
		Fee:    decimal.Zero,
	}
}

// IssueCertificate implements ports.Ledger
func (l *MemoryLedger) IssueCertificate(ctx context.Context, fp core.Fingerprint, storageURI string, signature []byte) (*core.Issuance, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrChain, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.issueCalls++
	if l.IssueErr != nil {
		return nil, l.IssueErr
	}

	id := l.next
	l.next++
	l.certs[id] = &core.Certificate{
		ID:           id,
		DocumentHash: fp,
		StorageURI:   storageURI,
		Issuer:       l.issuer,
		Signature:    append([]byte(nil), signature...),
		IssuedAt:     l.now().UTC(),
	}

	issuance := &core.Issuance{
		TxHash:      fakeTxHash(),
		BlockNumber: uint64(id),
		Fee:         l.Fee,
	}
	if l.DropIssuedEvent {
		return issuance, &core.IDExtractionError{TxHash: issuance.TxHash}
	}
	issuance.CertificateID = id
	return issuance, nil
}

// RevokeCertificate implements ports.Ledger
func (l *MemoryLedger) RevokeCertificate(ctx context.Context, id core.CertificateID, reason string) (*core.Revocation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cert, ok := l.certs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", core.ErrCertificateNotFound, id)
	}
	if cert.Revoked {
		return nil, fmt.Errorf("%w: certificate %d already revoked", core.ErrTxReverted, id)
	}
	cert.Revoked = true
	cert.RevocationReason = reason

	return &core.Revocation{CertificateID: id, TxHash: fakeTxHash(), Reason: reason}, nil
}

// Certificate implements ports.Ledger
func (l *MemoryLedger) Certificate(ctx context.Context, id core.CertificateID) (*core.Certificate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cert, ok := l.certs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", core.ErrCertificateNotFound, id)
	}
	c := *cert
	c.Signature = append([]byte(nil), cert.Signature...)
	return &c, nil
}

// Count implements ports.Ledger
func (l *MemoryLedger) Count(ctx context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.certs)), nil
}

// IssueCalls reports how many times IssueCertificate was invoked
func (l *MemoryLedger) IssueCalls() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.issueCalls
}

func fakeTxHash() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return "0x" + hex.EncodeToString(b[:])
}
