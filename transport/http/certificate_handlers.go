package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/service"
)

// DefaultMaxDocumentBytes caps uploaded documents
const DefaultMaxDocumentBytes = 32 << 20

// Response headers of the viewer endpoint
const (
	HeaderRevoked          = "X-Certificate-Revoked"
	HeaderRevocationReason = "X-Revocation-Reason"
	HeaderFingerprintMatch = "X-Fingerprint-Match"
	HeaderLocatorMatch     = "X-Locator-Match"
	HeaderLedgerError      = "X-Ledger-Unavailable"
	HeaderAttestationValid = "X-Attestation-Valid"
)

// CertificateHandlers serves issuance, revocation and verification
type CertificateHandlers struct {
	issuance     *service.IssuanceService
	verification *service.VerificationService
	revocation   *service.RevocationService
	chainID      uint64
	maxBytes     int64
	log          logrus.FieldLogger
}

// NewCertificateHandlers creates certificate handlers
func NewCertificateHandlers(
	issuance *service.IssuanceService,
	verification *service.VerificationService,
	revocation *service.RevocationService,
	chainID uint64,
	maxBytes int64,
	log logrus.FieldLogger,
) *CertificateHandlers {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	return &CertificateHandlers{
		issuance:     issuance,
		verification: verification,
		revocation:   revocation,
		chainID:      chainID,
		maxBytes:     maxBytes,
		log:          log,
	}
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

// Issue runs the issuance pipeline on an uploaded rendered document
func (h *CertificateHandlers) Issue(c *gin.Context) {
	file, err := c.FormFile("document")
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: document file required", core.ErrValidation))
		return
	}
	if file.Size > h.maxBytes {
		abortWithError(c, fmt.Errorf("%w: document exceeds %d bytes", core.ErrValidation, h.maxBytes))
		return
	}

	f, err := file.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}
	defer f.Close()

	document, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}
	if int64(len(document)) > h.maxBytes {
		abortWithError(c, fmt.Errorf("%w: document exceeds %d bytes", core.ErrValidation, h.maxBytes))
		return
	}

	meta := core.DocumentMeta{
		Name:        c.PostForm("name"),
		ContentType: file.Header.Get("Content-Type"),
	}

	issuer := ""
	if session := sessionFrom(c); session != nil {
		issuer = session.Address
	}
	log := h.log.WithField("issuer", issuer)

	result, err := h.issuance.Issue(c.Request.Context(), document, meta, func(stage core.Stage) {
		log.WithField("stage", stage).Debug("issuance progress")
	})
	if err != nil {
		var pipeErr *core.PipelineError
		if errors.As(err, &pipeErr) {
			abortWithPipelineError(c, pipeErr)
			return
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"certificate_id": uint64(result.CertificateID),
		"tx":             result.TransactionRef,
		"locator":        result.Locator,
		"fingerprint":    result.Fingerprint.Hex(),
		"link":           result.LinkURL,
		"fee_eth":        result.Issuance.Fee.String(),
	})
}

// Revoke revokes a certificate
func (h *CertificateHandlers) Revoke(c *gin.Context) {
	id, err := certificateIDParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	revocation, err := h.revocation.Revoke(c.Request.Context(), id, req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"certificate_id": uint64(revocation.CertificateID),
		"tx":             revocation.TxHash,
		"reason":         revocation.Reason,
	})
}

// Registry reports the registry size and network
func (h *CertificateHandlers) Registry(c *gin.Context) {
	count, err := h.verification.RegistryCount(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "chain_id": h.chainID})
}

// Status returns the revocation state of a certificate
func (h *CertificateHandlers) Status(c *gin.Context) {
	id, err := certificateIDParam(c)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status, err := h.verification.CheckRevocation(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": status.Revoked, "reason": status.Reason})
}

// View decrypts the document behind a shareable link. Revocation and
// integrity results travel as headers; a revoked document is still served.
func (h *CertificateHandlers) View(c *gin.Context) {
	link, err := core.LinkFromQuery(c.Request.URL.Query())
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.verification.Verify(c.Request.Context(), link)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Referrer-Policy", "no-referrer")
	if result.Certificate != nil {
		c.Header(HeaderRevoked, strconv.FormatBool(result.Status.Revoked))
		if result.Status.Revoked {
			c.Header(HeaderRevocationReason, result.Status.Reason)
		}
		c.Header(HeaderFingerprintMatch, strconv.FormatBool(result.FingerprintMatch))
		c.Header(HeaderLocatorMatch, strconv.FormatBool(result.LocatorMatch))
		c.Header(HeaderAttestationValid, strconv.FormatBool(result.AttestationValid))
	}
	if result.LedgerErr != nil {
		c.Header(HeaderLedgerError, "true")
	}

	c.Data(http.StatusOK, http.DetectContentType(result.Plaintext), result.Plaintext)
}

func certificateIDParam(c *gin.Context) (core.CertificateID, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid certificate id %q", core.ErrValidation, c.Param("id"))
	}
	return core.CertificateID(id), nil
}
