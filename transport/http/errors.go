package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kizaaaa/certichain/core"
)

// statusFor maps a categorized error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrForbidden), errors.Is(err, core.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, core.ErrAuthorization):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrBlobNotFound), errors.Is(err, core.ErrCertificateNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrFormat):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrCrypto):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNetwork), errors.Is(err, core.ErrChain):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// loginFailedMessage is the only text a rejected login ever sees
const loginFailedMessage = "invalid nonce or signature"

// publicMessage hides uncategorized internals
func publicMessage(err error) string {
	if core.Category(err) == nil {
		return "internal error"
	}
	return err.Error()
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"error": publicMessage(err)})
}

func abortWithPipelineError(c *gin.Context, pipeErr *core.PipelineError) {
	_ = c.Error(pipeErr)
	body := gin.H{
		"error": publicMessage(pipeErr.Err),
		"stage": pipeErr.Stage,
	}
	if !pipeErr.Partial.Fingerprint.IsZero() {
		body["fingerprint"] = pipeErr.Partial.Fingerprint.Hex()
	}
	if pipeErr.Partial.Locator != "" {
		body["locator"] = pipeErr.Partial.Locator
	}
	if pipeErr.Partial.TransactionRef != "" {
		body["tx"] = pipeErr.Partial.TransactionRef
	}
	c.AbortWithStatusJSON(statusFor(pipeErr.Err), body)
}
