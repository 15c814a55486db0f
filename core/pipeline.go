package core

import "fmt"

// Stage names one step of the issuance pipeline
type Stage string

const (
	StageHash    Stage = "hash"
	StageEncrypt Stage = "encrypt"
	StageStore   Stage = "store"
	StageAttest  Stage = "attest"
	StageRecord  Stage = "record"
	StageLink    Stage = "link"
)

// Stages lists the pipeline stages in execution order
var Stages = []Stage{StageHash, StageEncrypt, StageStore, StageAttest, StageRecord, StageLink}

// Partial holds identifiers produced by stages that completed before a failure.
// The symmetric key is deliberately absent.
type Partial struct {
	Fingerprint    Fingerprint
	Locator        string
	TransactionRef string
}

// PipelineError reports the stage at which issuance stopped
type PipelineError struct {
	Stage   Stage
	Err     error
	Partial Partial
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("issuance failed at stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IssueResult is the outcome of a successful issuance
type IssueResult struct {
	CertificateID  CertificateID
	TransactionRef string
	Locator        string
	Fingerprint    Fingerprint
	Link           ShareableLink
	LinkURL        string // Link rendered against the viewer base, empty without one
	Issuance       Issuance
}
