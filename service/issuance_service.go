package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/aead"
	"github.com/Kizaaaa/certichain/internal/digest"
	"github.com/Kizaaaa/certichain/internal/metrics"
	"github.com/Kizaaaa/certichain/ports"
)

// ProgressFunc is called after each completed pipeline stage
type ProgressFunc func(stage core.Stage)

// stageCategory is the error category a stage reports when the underlying
// failure carries none
var stageCategory = map[core.Stage]error{
	core.StageHash:    core.ErrValidation,
	core.StageEncrypt: core.ErrCrypto,
	core.StageStore:   core.ErrNetwork,
	core.StageAttest:  core.ErrNetwork,
	core.StageRecord:  core.ErrChain,
	core.StageLink:    core.ErrFormat,
}

// IssuanceService moves a rendered document to an anchored certificate and
// a shareable link. Stages run strictly in order and nothing is rolled back.
type IssuanceService struct {
	cipher   *aead.Cipher
	blobs    ports.BlobStore
	attester ports.Attester // nil disables the attest stage
	ledger   ports.Ledger
	linkBase string
	options
}

// NewIssuanceService creates the issuance pipeline
func NewIssuanceService(
	cipher *aead.Cipher,
	blobs ports.BlobStore,
	attester ports.Attester,
	ledger ports.Ledger,
	linkBase string,
	opts ...Option,
) *IssuanceService {
	if cipher == nil {
		cipher = aead.New()
	}
	return &IssuanceService{
		cipher:   cipher,
		blobs:    blobs,
		attester: attester,
		ledger:   ledger,
		linkBase: linkBase,
		options:  newOptions("issuance", opts),
	}
}

// pipelineRun holds one invocation's intermediate values
type pipelineRun struct {
	document  []byte
	meta      core.DocumentMeta
	partial   core.Partial
	material  aead.Material
	artifact  []byte
	signature []byte
	issuance  *core.Issuance
	link      core.ShareableLink
	url       string
}

// Issue runs the pipeline. A failure is returned as *core.PipelineError
// carrying the stage reached and the identifiers produced so far.
func (s *IssuanceService) Issue(ctx context.Context, document []byte, meta core.DocumentMeta, progress ProgressFunc) (*core.IssueResult, error) {
	run := &pipelineRun{document: document, meta: meta}

	steps := []struct {
		stage core.Stage
		fn    func(context.Context, *pipelineRun) error
	}{
		{core.StageHash, s.hash},
		{core.StageEncrypt, s.encrypt},
		{core.StageStore, s.store},
		{core.StageAttest, s.attest},
		{core.StageRecord, s.record},
		{core.StageLink, s.assembleLink},
	}

	for _, step := range steps {
		if err := s.runStage(ctx, step.stage, run, step.fn); err != nil {
			return nil, err
		}
		if progress != nil {
			progress(step.stage)
		}
	}

	result := &core.IssueResult{
		CertificateID:  run.issuance.CertificateID,
		TransactionRef: run.issuance.TxHash,
		Locator:        run.partial.Locator,
		Fingerprint:    run.partial.Fingerprint,
		Link:           run.link,
		LinkURL:        run.url,
		Issuance:       *run.issuance,
	}

	if err := s.eventPub.PublishIssued(ctx, result); err != nil {
		s.log.WithError(err).Warn("failed to publish issued event")
	}

	s.log.WithFields(logrus.Fields{
		"certificate_id": result.CertificateID,
		"tx":             result.TransactionRef,
		"locator":        result.Locator,
		"fingerprint":    result.Fingerprint.Hex(),
	}).Info("certificate issued")

	return result, nil
}

func (s *IssuanceService) runStage(ctx context.Context, stage core.Stage, run *pipelineRun, fn func(context.Context, *pipelineRun) error) error {
	if err := ctx.Err(); err != nil {
		return &core.PipelineError{Stage: stage, Err: categorize(stage, err), Partial: run.partial}
	}

	start := s.now()
	err := fn(ctx, run)
	status := metrics.Status(err)
	s.metrics.RecordOperation(ctx, metrics.DomainIssuance, string(stage), status)
	s.metrics.RecordDuration(ctx, metrics.DomainIssuance, string(stage), s.now().Sub(start), status)

	if err != nil {
		err = categorize(stage, err)
		s.log.WithFields(logrus.Fields{
			"stage":   stage,
			"locator": run.partial.Locator,
			"tx":      run.partial.TransactionRef,
			"error":   err.Error(),
		}).Error("issuance failed")
		return &core.PipelineError{Stage: stage, Err: err, Partial: run.partial}
	}

	s.log.WithField("stage", stage).Debug("stage complete")
	return nil
}

func (s *IssuanceService) hash(_ context.Context, run *pipelineRun) error {
	run.partial.Fingerprint = digest.Fingerprint(run.document)
	return nil
}

func (s *IssuanceService) encrypt(_ context.Context, run *pipelineRun) error {
	material, artifact, err := s.cipher.Seal(run.document)
	if err != nil {
		return err
	}
	run.material = material
	run.artifact = artifact
	return nil
}

func (s *IssuanceService) store(ctx context.Context, run *pipelineRun) error {
	name := run.meta.Name
	if name == "" {
		name = run.partial.Fingerprint.Hex() + ".enc"
	}
	locator, err := s.blobs.Put(ctx, run.artifact, name)
	if err != nil {
		return err
	}
	run.partial.Locator = locator
	return nil
}

func (s *IssuanceService) attest(ctx context.Context, run *pipelineRun) error {
	if s.attester == nil {
		return nil
	}
	signature, err := s.attester.Attest(ctx, run.partial.Fingerprint, run.partial.Locator)
	if err != nil {
		return err
	}
	run.signature = signature
	return nil
}

func (s *IssuanceService) record(ctx context.Context, run *pipelineRun) error {
	issuance, err := s.ledger.IssueCertificate(ctx, run.partial.Fingerprint, run.partial.Locator, run.signature)
	if issuance != nil {
		run.partial.TransactionRef = issuance.TxHash
	}

	var idErr *core.IDExtractionError
	if errors.As(err, &idErr) && run.partial.TransactionRef == "" {
		run.partial.TransactionRef = idErr.TxHash
	}
	if err != nil {
		return err
	}

	if fee, _ := issuance.Fee.Float64(); fee > 0 {
		s.metrics.RecordFee(ctx, "issue", fee)
	}
	run.issuance = issuance
	return nil
}

func (s *IssuanceService) assembleLink(_ context.Context, run *pipelineRun) error {
	run.link = core.ShareableLink{
		CertificateID:  run.issuance.CertificateID,
		TransactionRef: run.issuance.TxHash,
		Locator:        run.partial.Locator,
		KeyHex:         aead.KeyToHex(run.material.Key),
	}
	if s.linkBase == "" {
		return nil
	}
	url, err := run.link.URL(s.linkBase)
	if err != nil {
		return err
	}
	run.url = url
	return nil
}

// categorize makes sure err carries exactly one category
func categorize(stage core.Stage, err error) error {
	if core.Category(err) != nil {
		return err
	}
	return fmt.Errorf("%w: %w", stageCategory[stage], err)
}
