package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
)

const ipfsScheme = "ipfs"

const (
	DefaultPinataAPIURL     = "https://api.pinata.cloud"
	DefaultPinataGatewayURL = "https://gateway.pinata.cloud"
)

// maxArtifactSize bounds gateway downloads
const maxArtifactSize = 64 << 20

// PinataConfig configures a PinataClient
type PinataConfig struct {
	APIKey     string
	SecretKey  string
	APIURL     string
	GatewayURL string
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// PinataClient pins artifacts to IPFS through the Pinata API and reads them
// back through an IPFS gateway
type PinataClient struct {
	cfg  PinataConfig
	http *http.Client
	log  logrus.FieldLogger
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// NewPinataClient creates a client, filling defaults
func NewPinataClient(cfg PinataConfig) *PinataClient {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultPinataAPIURL
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultPinataGatewayURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &PinataClient{cfg: cfg, http: httpClient, log: logger}
}

// Put implements ports.BlobStore
func (c *PinataClient) Put(ctx context.Context, data []byte, name string) (string, error) {
	if name == "" {
		name = contentKey(data) + ".enc"
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("%w: build upload: %v", core.ErrNetwork, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: build upload: %v", core.ErrNetwork, err)
	}
	meta, _ := json.Marshal(map[string]string{"name": name})
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", fmt.Errorf("%w: build upload: %v", core.ErrNetwork, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: build upload: %v", core.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.APIURL, "/")+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("pinata_api_key", c.cfg.APIKey)
	req.Header.Set("pinata_secret_api_key", c.cfg.SecretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: pin upload: %v", core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: pin upload: status %d: %s", core.ErrNetwork, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var pinned pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return "", fmt.Errorf("%w: pin response: %v", core.ErrNetwork, err)
	}
	if pinned.IpfsHash == "" {
		return "", fmt.Errorf("%w: pin response without hash", core.ErrNetwork)
	}

	c.log.WithFields(logrus.Fields{
		"cid":  pinned.IpfsHash,
		"name": name,
		"size": pinned.PinSize,
	}).Info("pinned artifact")

	return ipfsScheme + "://" + pinned.IpfsHash, nil
}

// Get implements ports.BlobStore. Both ipfs:// locators and /ipfs/<cid>
// URLs on the configured gateway are accepted.
func (c *PinataClient) Get(ctx context.Context, locator string) ([]byte, error) {
	target, err := c.gatewayURL(locator)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNetwork, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: gateway fetch: %v", core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, core.ErrBlobNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: gateway fetch: status %d", core.ErrNetwork, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: gateway read: %v", core.ErrNetwork, err)
	}
	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("%w: artifact exceeds %d bytes", core.ErrFormat, maxArtifactSize)
	}
	return data, nil
}

func (c *PinataClient) gatewayURL(locator string) (string, error) {
	gateway := strings.TrimRight(c.cfg.GatewayURL, "/")

	var cid string
	if strings.HasPrefix(locator, "https://") || strings.HasPrefix(locator, "http://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", fmt.Errorf("%w: locator: %v", core.ErrFormat, err)
		}
		base, err := url.Parse(gateway)
		if err != nil {
			return "", fmt.Errorf("%w: gateway: %v", core.ErrFormat, err)
		}
		if u.Scheme != base.Scheme || u.Host != base.Host || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
			return "", fmt.Errorf("%w: locator is not on the configured gateway", core.ErrFormat)
		}
		rest, ok := strings.CutPrefix(u.Path, "/ipfs/")
		if !ok {
			return "", fmt.Errorf("%w: locator is not an ipfs gateway path", core.ErrFormat)
		}
		cid = rest
	} else {
		var err error
		if cid, err = splitLocator(locator, ipfsScheme); err != nil {
			return "", err
		}
	}

	if !validCID(cid) {
		return "", fmt.Errorf("%w: invalid cid %q", core.ErrFormat, cid)
	}
	return gateway + "/ipfs/" + cid, nil
}

// validCID accepts the base32 and base58 alphabets CIDs are written in
func validCID(cid string) bool {
	if cid == "" {
		return false
	}
	for _, r := range cid {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
