package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/ports"
)

// Topics carrying certificate lifecycle events
const (
	TopicIssued  = "certichain.certificate.issued"
	TopicRevoked = "certichain.certificate.revoked"
	TopicLogout  = "certichain.logout"
)

// IssuedEvent is published after a certificate is recorded. The key is never
// part of it.
type IssuedEvent struct {
	CertificateID uint64    `json:"certificate_id"`
	TxHash        string    `json:"tx_hash"`
	Locator       string    `json:"locator"`
	Fingerprint   string    `json:"fingerprint"`
	Fee           string    `json:"fee_eth"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RevokedEvent is published after a certificate is revoked
type RevokedEvent struct {
	CertificateID uint64    `json:"certificate_id"`
	TxHash        string    `json:"tx_hash"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// PublishIssued publishes an issuance event
func (p *WatermillPublisher) PublishIssued(ctx context.Context, result *core.IssueResult) error {
	return p.publish(ctx, TopicIssued, result.TransactionRef, IssuedEvent{
		CertificateID: uint64(result.CertificateID),
		TxHash:        result.TransactionRef,
		Locator:       result.Locator,
		Fingerprint:   result.Fingerprint.Hex(),
		Fee:           result.Issuance.Fee.String(),
		OccurredAt:    p.now().UTC(),
	})
}

// PublishRevoked publishes a revocation event
func (p *WatermillPublisher) PublishRevoked(ctx context.Context, revocation *core.Revocation) error {
	return p.publish(ctx, TopicRevoked, revocation.TxHash, RevokedEvent{
		CertificateID: uint64(revocation.CertificateID),
		TxHash:        revocation.TxHash,
		Reason:        revocation.Reason,
		OccurredAt:    p.now().UTC(),
	})
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(ctx, TopicLogout, tokenID, LogoutEvent{
		Address: address,
		TokenID: tokenID,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishIssued(context.Context, *core.IssueResult) error { return nil }
func (NopPublisher) PublishRevoked(context.Context, *core.Revocation) error { return nil }
func (NopPublisher) PublishLogout(context.Context, string, string) error { return nil }

// LogrusAdapter lets watermill log through logrus
type LogrusAdapter struct {
	entry *logrus.Entry
}

// NewLogrusAdapter wraps logger for watermill
func NewLogrusAdapter(logger logrus.FieldLogger) watermill.LoggerAdapter {
	return &LogrusAdapter{entry: logger.WithField("component", "watermill")}
}

func (l *LogrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

func (l *LogrusAdapter) Info(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *LogrusAdapter) Debug(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *LogrusAdapter) Trace(msg string, fields watermill.LogFields) {
	l.entry.WithFields(logrus.Fields(fields)).Trace(msg)
}

func (l *LogrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LogrusAdapter{entry: l.entry.WithFields(logrus.Fields(fields))}
}
