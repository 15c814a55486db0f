package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/metrics"
	"github.com/Kizaaaa/certichain/ports"
)

// RevocationService revokes certificates on the ledger
type RevocationService struct {
	ledger ports.Ledger
	options
}

// NewRevocationService creates a revocation service
func NewRevocationService(ledger ports.Ledger, opts ...Option) *RevocationService {
	return &RevocationService{
		ledger:  ledger,
		options: newOptions("revocation", opts),
	}
}

// Revoke marks certificate id as revoked with reason
func (s *RevocationService) Revoke(ctx context.Context, id core.CertificateID, reason string) (*core.Revocation, error) {
	reason = strings.TrimSpace(reason)
	if id == 0 {
		return nil, fmt.Errorf("%w: certificate id required", core.ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: revocation reason required", core.ErrValidation)
	}

	start := s.now()
	revocation, err := s.ledger.RevokeCertificate(ctx, id, reason)
	status := metrics.Status(err)
	s.metrics.RecordOperation(ctx, metrics.DomainRevocation, "revoke", status)
	s.metrics.RecordDuration(ctx, metrics.DomainRevocation, "revoke", s.now().Sub(start), status)
	if err != nil {
		if core.Category(err) == nil {
			err = fmt.Errorf("%w: %w", core.ErrChain, err)
		}
		return nil, err
	}

	if err := s.eventPub.PublishRevoked(ctx, revocation); err != nil {
		s.log.WithError(err).Warn("failed to publish revoked event")
	}

	s.log.WithFields(logrus.Fields{
		"certificate_id": id,
		"tx":             revocation.TxHash,
		"reason":         reason,
	}).Info("certificate revoked")

	return revocation, nil
}
