package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Kizaaaa/certichain/core"
)

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	args := m.Called(ctx, data, name)
	return args.String(0), args.Error(1)
}

func (m *mockBlobStore) Get(ctx context.Context, locator string) ([]byte, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) IssueCertificate(ctx context.Context, fp core.Fingerprint, storageURI string, signature []byte) (*core.Issuance, error) {
	args := m.Called(ctx, fp, storageURI, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.Issuance), args.Error(1)
}

func (m *mockLedger) RevokeCertificate(ctx context.Context, id core.CertificateID, reason string) (*core.Revocation, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.Revocation), args.Error(1)
}

func (m *mockLedger) Certificate(ctx context.Context, id core.CertificateID) (*core.Certificate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.Certificate), args.Error(1)
}

func (m *mockLedger) Count(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

type mockAttester struct {
	mock.Mock
}

func (m *mockAttester) Attest(ctx context.Context, fp core.Fingerprint, storageURI string) ([]byte, error) {
	args := m.Called(ctx, fp, storageURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type recordingPublisher struct {
	issued  []*core.IssueResult
	revoked []*core.Revocation
	logouts []string
}

func (p *recordingPublisher) PublishIssued(_ context.Context, r *core.IssueResult) error {
	p.issued = append(p.issued, r)
	return nil
}

func (p *recordingPublisher) PublishRevoked(_ context.Context, r *core.Revocation) error {
	p.revoked = append(p.revoked, r)
	return nil
}

func (p *recordingPublisher) PublishLogout(_ context.Context, _ string, tokenID string) error {
	p.logouts = append(p.logouts, tokenID)
	return nil
}
