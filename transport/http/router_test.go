package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kizaaaa/certichain/adapters/attester"
	"github.com/Kizaaaa/certichain/adapters/blob"
	"github.com/Kizaaaa/certichain/adapters/ledger"
	"github.com/Kizaaaa/certichain/adapters/store"
	"github.com/Kizaaaa/certichain/adapters/tokenizer"
	"github.com/Kizaaaa/certichain/adapters/verifier"
	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/eth"
	"github.com/Kizaaaa/certichain/internal/metrics"
	"github.com/Kizaaaa/certichain/service"
)

const linkBase = "https://certs.example.org/certificates/view"

var pdf = []byte("%PDF-1.7\n1 0 obj diploma endobj\n")

type server struct {
	router *gin.Engine
	admin  *eth.KeySigner
	ledger *ledger.MemoryLedger
	blobs  *blob.MemoryStore
}

func newServer(t *testing.T, cfg RouterConfig) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger, _ := test.NewNullLogger()
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	admin := eth.NewKeySigner(walletKey)

	challenges := store.NewMemoryStore(0)
	t.Cleanup(func() { _ = challenges.Close() })
	v, err := verifier.NewEthVerifier(verifier.AdminAllowList(admin.Address().Hex()))
	require.NoError(t, err)

	blobs := blob.NewMemoryStore()
	reg := ledger.NewMemoryLedger(strings.ToLower(admin.Address().Hex()))
	opts := []service.Option{service.WithLogger(logger)}

	services := Services{
		Auth:         service.NewAuthService(tokenizer.NewJWTTokenizer(signKey), challenges, challenges, v, 0, opts...),
		Issuance:     service.NewIssuanceService(nil, blobs, attester.NewEIP712Attester(admin, 11155111, common.Address{}), reg, linkBase, opts...),
		Verification: service.NewVerificationService(nil, blobs, reg, attester.NewEIP712Checker(11155111, common.Address{}), opts...),
		Revocation:   service.NewRevocationService(reg, opts...),
	}
	cfg.Logger = logger
	cfg.ChainID = 11155111

	return &server{
		router: SetupRouter(ctx, services, cfg),
		admin:  admin,
		ledger: reg,
		blobs:  blobs,
	}
}

func (s *server) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *server) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(t, req)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *server) login(t *testing.T, wallet *eth.KeySigner) string {
	t.Helper()
	rec := s.doJSON(t, http.MethodPost, "/auth/nonce", "", gin.H{"address": wallet.Address().Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	nonce := decode(t, rec)["nonce"].(string)

	sig, err := eth.SignText(wallet, eth.NonceMessage(nonce))
	require.NoError(t, err)

	rec = s.doJSON(t, http.MethodPost, "/auth/verify", "", gin.H{
		"address":   wallet.Address().Hex(),
		"signature": sig,
		"nonce":     nonce,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["token"].(string)
}

func (s *server) issue(t *testing.T, token string, doc []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("document", "diploma.pdf")
	require.NoError(t, err)
	_, err = part.Write(doc)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("name", "diploma.pdf.enc"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/certificates", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(t, req)
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t, RouterConfig{})
	token := s.login(t, s.admin)

	rec := s.doJSON(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode(t, rec)
	assert.Equal(t, strings.ToLower(s.admin.Address().Hex()), me["address"])
	assert.Equal(t, string(core.RoleAdmin), me["role"])

	rec = s.doJSON(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.doJSON(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthErrors(t *testing.T) {
	s := newServer(t, RouterConfig{})

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"missing address", http.MethodPost, "/auth/nonce", gin.H{}, http.StatusBadRequest},
		{"invalid address", http.MethodPost, "/auth/nonce", gin.H{"address": "0x123"}, http.StatusBadRequest},
		{"verify without nonce", http.MethodPost, "/auth/verify", gin.H{"address": s.admin.Address().Hex(), "signature": "0x00"}, http.StatusBadRequest},
		{"verify unknown nonce", http.MethodPost, "/auth/verify", gin.H{"address": s.admin.Address().Hex(), "signature": "0x00", "nonce": "ab"}, http.StatusUnauthorized},
		{"peek without challenge", http.MethodGet, "/auth/nonce?address=" + s.admin.Address().Hex(), nil, http.StatusNotFound},
		{"me without token", http.MethodGet, "/api/me", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doJSON(t, tt.method, tt.path, "", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, decode(t, rec), "error")
		})
	}

	t.Run("forged token", func(t *testing.T) {
		rec := s.doJSON(t, http.MethodGet, "/api/me", "eyJhbGciOiJub25lIn0.e30.", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLoginFailuresLookAlike(t *testing.T) {
	s := newServer(t, RouterConfig{})
	addr := s.admin.Address().Hex()

	challenge := func(t *testing.T, wallet *eth.KeySigner) string {
		t.Helper()
		rec := s.doJSON(t, http.MethodPost, "/auth/nonce", "", gin.H{"address": wallet.Address().Hex()})
		require.Equal(t, http.StatusOK, rec.Code)
		return decode(t, rec)["nonce"].(string)
	}

	// wrong nonce while a challenge is live
	nonce := challenge(t, s.admin)
	sig, err := eth.SignText(s.admin, eth.NonceMessage(nonce))
	require.NoError(t, err)
	wrongNonce := s.doJSON(t, http.MethodPost, "/auth/verify", "", gin.H{
		"address": addr, "signature": sig, "nonce": nonce + "00",
	})

	// live nonce signed by someone else
	nonce = challenge(t, s.admin)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	other := eth.NewKeySigner(otherKey)
	sig, err = eth.SignText(other, eth.NonceMessage(nonce))
	require.NoError(t, err)
	badSignature := s.doJSON(t, http.MethodPost, "/auth/verify", "", gin.H{
		"address": addr, "signature": sig, "nonce": nonce,
	})

	// malformed signature over a live nonce
	nonce = challenge(t, s.admin)
	malformed := s.doJSON(t, http.MethodPost, "/auth/verify", "", gin.H{
		"address": addr, "signature": "0x00", "nonce": nonce,
	})

	assert.Equal(t, http.StatusUnauthorized, wrongNonce.Code)
	assert.Equal(t, http.StatusUnauthorized, badSignature.Code)
	assert.Equal(t, http.StatusUnauthorized, malformed.Code)
	assert.JSONEq(t, `{"error":"invalid nonce or signature"}`, wrongNonce.Body.String())
	assert.Equal(t, wrongNonce.Body.String(), badSignature.Body.String())
	assert.Equal(t, wrongNonce.Body.String(), malformed.Body.String())

	t.Run("address outside the allow-list is forbidden", func(t *testing.T) {
		nonce := challenge(t, other)
		sig, err := eth.SignText(other, eth.NonceMessage(nonce))
		require.NoError(t, err)
		rec := s.doJSON(t, http.MethodPost, "/auth/verify", "", gin.H{
			"address": other.Address().Hex(), "signature": sig, "nonce": nonce,
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, wrongNonce.Body.String(), rec.Body.String())
	})
}

func TestPeekNonce(t *testing.T) {
	s := newServer(t, RouterConfig{})
	addr := s.admin.Address().Hex()

	rec := s.doJSON(t, http.MethodPost, "/auth/nonce", "", gin.H{"address": addr})
	require.Equal(t, http.StatusOK, rec.Code)
	nonce := decode(t, rec)["nonce"]
	assert.Contains(t, decode(t, rec)["message"], nonce)

	rec = s.doJSON(t, http.MethodGet, "/auth/nonce?address="+addr, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nonce, decode(t, rec)["nonce"])
}

func TestIssueAndView(t *testing.T) {
	s := newServer(t, RouterConfig{})
	token := s.login(t, s.admin)

	rec := s.issue(t, token, pdf)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	issued := decode(t, rec)
	assert.Equal(t, float64(1), issued["certificate_id"])

	link, err := url.Parse(issued["link"].(string))
	require.NoError(t, err)

	rec = s.doJSON(t, http.MethodGet, "/certificates/view?"+link.RawQuery, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdf, rec.Body.Bytes())
	assert.Equal(t, "false", rec.Header().Get(HeaderRevoked))
	assert.Equal(t, "true", rec.Header().Get(HeaderFingerprintMatch))
	assert.Equal(t, "true", rec.Header().Get(HeaderLocatorMatch))
	assert.Equal(t, "true", rec.Header().Get(HeaderAttestationValid))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = s.doJSON(t, http.MethodGet, "/api/registry", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
	assert.Equal(t, float64(11155111), decode(t, rec)["chain_id"])

	t.Run("revoked document is still served", func(t *testing.T) {
		rec := s.doJSON(t, http.MethodPost, "/api/certificates/1/revoke", token, gin.H{"reason": "duplicate"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = s.doJSON(t, http.MethodGet, "/certificates/1/status", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		status := decode(t, rec)
		assert.Equal(t, true, status["revoked"])
		assert.Equal(t, "duplicate", status["reason"])

		rec = s.doJSON(t, http.MethodGet, "/certificates/view?"+link.RawQuery, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pdf, rec.Body.Bytes())
		assert.Equal(t, "true", rec.Header().Get(HeaderRevoked))
		assert.Equal(t, "duplicate", rec.Header().Get(HeaderRevocationReason))
	})

	t.Run("unknown certificate id skips cross-check", func(t *testing.T) {
		q := link.Query()
		q.Set(core.LinkParamCertificateID, "42")
		rec := s.doJSON(t, http.MethodGet, "/certificates/view?"+q.Encode(), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, pdf, rec.Body.Bytes())
		assert.Equal(t, "true", rec.Header().Get(HeaderLedgerError))
		assert.Empty(t, rec.Header().Get(HeaderFingerprintMatch))
	})

	t.Run("wrong key", func(t *testing.T) {
		q := link.Query()
		q.Set(core.LinkParamKey, strings.Repeat("00", 32))
		rec := s.doJSON(t, http.MethodGet, "/certificates/view?"+q.Encode(), "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		q := link.Query()
		q.Del(core.LinkParamKey)
		rec := s.doJSON(t, http.MethodGet, "/certificates/view?"+q.Encode(), "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestIssueErrors(t *testing.T) {
	s := newServer(t, RouterConfig{})
	token := s.login(t, s.admin)

	t.Run("requires session", func(t *testing.T) {
		rec := s.issue(t, "", pdf)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing document", func(t *testing.T) {
		rec := s.doJSON(t, http.MethodPost, "/api/certificates", token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ledger failure reports stage and locator", func(t *testing.T) {
		s.ledger.IssueErr = core.ErrTxReverted
		defer func() { s.ledger.IssueErr = nil }()

		rec := s.issue(t, token, pdf)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, string(core.StageRecord), body["stage"])
		assert.NotEmpty(t, body["locator"])
		assert.NotContains(t, rec.Body.String(), "key")
	})

	t.Run("invalid revoke id", func(t *testing.T) {
		rec := s.doJSON(t, http.MethodPost, "/api/certificates/abc/revoke", token, gin.H{"reason": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown certificate status", func(t *testing.T) {
		rec := s.doJSON(t, http.MethodGet, "/certificates/77/status", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, RouterConfig{
		RateLimitEnabled:        true,
		RateLimitRequestsPerSec: 0.001,
		RateLimitBurst:          2,
	})

	for i := 0; i < 2; i++ {
		rec := s.doJSON(t, http.MethodPost, "/auth/nonce", "", gin.H{"address": s.admin.Address().Hex()})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.doJSON(t, http.MethodPost, "/auth/nonce", "", gin.H{"address": s.admin.Address().Hex()})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = s.doJSON(t, http.MethodGet, "/certificates/1/status", "", nil)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code, "verification routes are not limited")
}

func TestMetricsEndpoint(t *testing.T) {
	provider, err := metrics.NewProvider()
	require.NoError(t, err)

	s := newServer(t, RouterConfig{
		MeterProvider:    provider.MeterProvider(),
		MetricsHandler:   provider.Handler(),
		MetricsNamespace: "certichain",
	})

	s.doJSON(t, http.MethodGet, "/certificates/1/status", "", nil)
	rec := s.doJSON(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "certichain_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrAddressRequired, http.StatusBadRequest},
		{core.ErrInvalidHex, http.StatusBadRequest},
		{core.ErrInvalidNonce, http.StatusUnauthorized},
		{core.ErrForbidden, http.StatusForbidden},
		{core.ErrUnauthorized, http.StatusForbidden},
		{core.ErrDecrypt, http.StatusUnprocessableEntity},
		{core.ErrBlobNotFound, http.StatusNotFound},
		{core.ErrCertificateNotFound, http.StatusNotFound},
		{core.ErrTxReverted, http.StatusBadGateway},
		{&core.IDExtractionError{TxHash: "0x1"}, http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
	assert.Equal(t, "internal error", publicMessage(assert.AnError))
}
