// Package app wires adapters and services from configuration.
package app

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/adapters/attester"
	"github.com/Kizaaaa/certichain/adapters/blob"
	"github.com/Kizaaaa/certichain/adapters/events"
	"github.com/Kizaaaa/certichain/adapters/ledger"
	"github.com/Kizaaaa/certichain/adapters/store"
	"github.com/Kizaaaa/certichain/adapters/tokenizer"
	"github.com/Kizaaaa/certichain/adapters/verifier"
	"github.com/Kizaaaa/certichain/internal/aead"
	"github.com/Kizaaaa/certichain/internal/config"
	"github.com/Kizaaaa/certichain/internal/eth"
	"github.com/Kizaaaa/certichain/internal/metrics"
	"github.com/Kizaaaa/certichain/ports"
	"github.com/Kizaaaa/certichain/service"
	transporthttp "github.com/Kizaaaa/certichain/transport/http"
)

// janitorInterval is how often the in-memory challenge store sweeps
const janitorInterval = time.Minute

// Container owns every long-lived dependency of the process
type Container struct {
	cfg    *config.Config
	logger *logrus.Logger

	services transporthttp.Services
	metrics  *metrics.Provider
	chainID  uint64

	closers []func() error
}

// NewContainer builds all adapters and services described by cfg
func NewContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{cfg: cfg, logger: logger, chainID: cfg.EthChainID}
	if err := c.build(ctx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	cfg := c.cfg

	businessMetrics := metrics.NewNoOpBusinessMetrics()
	if cfg.MetricsEnabled {
		provider, err := metrics.NewProvider()
		if err != nil {
			return err
		}
		c.metrics = provider
		c.closers = append(c.closers, func() error { return provider.Shutdown(context.Background()) })

		businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), cfg.MetricsNamespace)
		if err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		c.closers = append(c.closers, redisClient.Close)
	}

	challenges, denylist := c.challengeStore(redisClient)

	publisher, err := c.publisher(redisClient)
	if err != nil {
		return err
	}
	eventPub := events.NewWatermillPublisher(publisher)

	tokenKey, err := c.tokenKey()
	if err != nil {
		return err
	}

	sigVerifier, err := verifier.NewEthVerifier(verifier.AdminAllowList(cfg.AdminAddresses...))
	if err != nil {
		return err
	}
	if len(cfg.AdminAddresses) == 0 {
		c.logger.Warn("ADMIN_ADDRESSES is empty, nobody can log in")
	}

	blobs, err := c.blobStore(ctx)
	if err != nil {
		return err
	}

	issuer, err := c.issuerSigner()
	if err != nil {
		return err
	}

	reg, err := c.openLedger(ctx, issuer)
	if err != nil {
		return err
	}

	registry := common.HexToAddress(cfg.RegistryAddress)
	var att ports.Attester
	if cfg.AttestEnabled && issuer != nil {
		att = attester.NewEIP712Attester(issuer, c.chainID, registry)
	}
	checker := attester.NewEIP712Checker(c.chainID, registry)

	opts := []service.Option{
		service.WithLogger(c.logger),
		service.WithMetrics(businessMetrics),
		service.WithEvents(eventPub),
	}
	cipher := aead.New()

	c.services = transporthttp.Services{
		Auth:         service.NewAuthService(tokenizer.NewJWTTokenizer(tokenKey), challenges, denylist, sigVerifier, cfg.SessionTTL, opts...),
		Issuance:     service.NewIssuanceService(cipher, blobs, att, reg, cfg.LinkBaseURL, opts...),
		Verification: service.NewVerificationService(cipher, blobs, reg, checker, opts...),
		Revocation:   service.NewRevocationService(reg, opts...),
	}
	return nil
}

func (c *Container) challengeStore(client *redis.Client) (ports.ChallengeStore, ports.TokenDenylist) {
	if client != nil {
		s := store.NewRedisStore(client, c.cfg.ChallengeTTL)
		return s, s
	}
	s := store.NewMemoryStore(janitorInterval, store.WithTTL(c.cfg.ChallengeTTL))
	c.closers = append(c.closers, s.Close)
	return s, s
}

func (c *Container) publisher(client *redis.Client) (message.Publisher, error) {
	logger := events.NewLogrusAdapter(c.logger)
	if client != nil {
		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		c.closers = append(c.closers, publisher.Close)
		return publisher, nil
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	c.closers = append(c.closers, pubsub.Close)
	return pubsub, nil
}

func (c *Container) tokenKey() (*ecdsa.PrivateKey, error) {
	if c.cfg.TokenSigningKey != "" {
		return ParseTokenKey(c.cfg.TokenSigningKey)
	}
	c.logger.Warn("TOKEN_SIGNING_KEY is empty, sessions will not survive a restart")
	return GenerateTokenKey()
}

func (c *Container) blobStore(ctx context.Context) (ports.BlobStore, error) {
	cfg := c.cfg
	switch cfg.BlobBackend {
	case config.BlobBackendMemory:
		return blob.NewMemoryStore(), nil
	case config.BlobBackendBadger:
		s, err := blob.NewBadgerStore(blob.BadgerConfig{Path: cfg.BadgerPath, Logger: c.logger})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, s.Close)
		return s, nil
	case config.BlobBackendBucket:
		s, err := blob.OpenBucketStore(ctx, cfg.BucketURL, c.logger)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, s.Close)
		return s, nil
	case config.BlobBackendPinata:
		if cfg.PinataAPIKey == "" || cfg.PinataSecretAPIKey == "" {
			return nil, errors.New("pinata backend needs PINATA_API_KEY and PINATA_SECRET_API_KEY")
		}
		return blob.NewPinataClient(blob.PinataConfig{
			APIKey:     cfg.PinataAPIKey,
			SecretKey:  cfg.PinataSecretAPIKey,
			GatewayURL: cfg.PinataGatewayURL,
			Logger:     c.logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func (c *Container) issuerSigner() (*eth.KeySigner, error) {
	if c.cfg.IssuerPrivateKey == "" {
		return nil, nil
	}
	return eth.NewKeySignerFromHex(c.cfg.IssuerPrivateKey)
}

func (c *Container) openLedger(ctx context.Context, issuer *eth.KeySigner) (ports.Ledger, error) {
	cfg := c.cfg
	if cfg.EthRPCURL == "" {
		c.logger.Warn("ETH_RPC_URL is empty, using a volatile in-memory ledger")
		name := ""
		if issuer != nil {
			name = strings.ToLower(issuer.Address().Hex())
		}
		return ledger.NewMemoryLedger(name), nil
	}

	if !common.IsHexAddress(cfg.RegistryAddress) {
		return nil, fmt.Errorf("REGISTRY_ADDRESS %q is not an address", cfg.RegistryAddress)
	}
	if issuer == nil {
		c.logger.Warn("ISSUER_PRIVATE_KEY is empty, the ledger is read-only")
	}

	l, err := ledger.DialEthLedger(ctx, ledger.EthConfig{
		RPCURL:         cfg.EthRPCURL,
		Registry:       common.HexToAddress(cfg.RegistryAddress),
		ChainID:        cfg.EthChainID,
		Signer:         issuer,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         c.logger,
	})
	if err != nil {
		return nil, err
	}
	c.chainID = l.ChainID()
	c.closers = append(c.closers, func() error { l.Close(); return nil })

	c.logger.WithFields(logrus.Fields{
		"chain_id": c.chainID,
		"registry": cfg.RegistryAddress,
	}).Info("connected to registry")
	return l, nil
}

// Services returns the wired use cases
func (c *Container) Services() transporthttp.Services {
	return c.services
}

// Logger returns the process logger
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Router builds the HTTP router. ctx bounds its background work.
func (c *Container) Router(ctx context.Context) *gin.Engine {
	rc := transporthttp.RouterConfig{
		ChainID:                 c.chainID,
		RateLimitEnabled:        c.cfg.RateLimitEnabled,
		RateLimitRequestsPerSec: c.cfg.RateLimitRequestsPerSec,
		RateLimitBurst:          c.cfg.RateLimitBurst,
		MetricsNamespace:        c.cfg.MetricsNamespace,
		Logger:                  c.logger,
	}
	if c.metrics != nil {
		rc.MeterProvider = c.metrics.MeterProvider()
		rc.MetricsHandler = c.metrics.Handler()
	}
	return transporthttp.SetupRouter(ctx, c.services, rc)
}

// Close releases resources in reverse order of acquisition
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
