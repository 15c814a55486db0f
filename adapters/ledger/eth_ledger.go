package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/internal/eth"
)

// DefaultConfirmTimeout bounds how long a write waits to be mined
const DefaultConfirmTimeout = 3 * time.Minute

// weiDecimals converts wei to ether
const weiDecimals = 18

// EthConfig configures an EthLedger
type EthConfig struct {
	RPCURL         string
	Registry       common.Address
	ChainID        uint64
	Signer         *eth.KeySigner // nil for a read-only ledger
	ConfirmTimeout time.Duration
	Logger         logrus.FieldLogger
}

// EthLedger talks to a deployed CertificateRegistry over JSON-RPC
type EthLedger struct {
	client   *ethclient.Client
	abi      abi.ABI
	address  common.Address
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	chainID  *big.Int
	timeout  time.Duration
	log      logrus.FieldLogger
}

// certificateIssued mirrors the CertificateIssued event
type certificateIssued struct {
	Id           *big.Int
	DocumentHash [32]byte
	StorageURI   string
	Issuer       common.Address
}

// DialEthLedger connects to the node and checks it serves the expected chain
func DialEthLedger(ctx context.Context, cfg EthConfig) (*EthLedger, error) {
	parsed, err := abi.JSON(strings.NewReader(RegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry abi: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", core.ErrChain, cfg.RPCURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: chain id: %v", core.ErrChain, err)
	}
	if cfg.ChainID != 0 && chainID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("%w: wrong network, expected chain %d, node serves %s", core.ErrChain, cfg.ChainID, chainID)
	}

	l := &EthLedger{
		client:   client,
		abi:      parsed,
		address:  cfg.Registry,
		contract: bind.NewBoundContract(cfg.Registry, parsed, client, client, client),
		chainID:  chainID,
		timeout:  cfg.ConfirmTimeout,
		log:      cfg.Logger,
	}
	if l.timeout <= 0 {
		l.timeout = DefaultConfirmTimeout
	}
	if l.log == nil {
		l.log = logrus.New()
	}

	if cfg.Signer != nil {
		auth, err := bind.NewKeyedTransactorWithChainID(cfg.Signer.PrivateKey(), chainID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: transactor: %v", core.ErrChain, err)
		}
		l.auth = auth
	}

	return l, nil
}

// ChainID returns the chain the node serves
func (l *EthLedger) ChainID() uint64 {
	return l.chainID.Uint64()
}

// Close closes the RPC connection
func (l *EthLedger) Close() {
	l.client.Close()
}

// IssueCertificate implements ports.Ledger
func (l *EthLedger) IssueCertificate(ctx context.Context, fp core.Fingerprint, storageURI string, signature []byte) (*core.Issuance, error) {
	if signature == nil {
		signature = []byte{}
	}
	receipt, err := l.transact(ctx, "issueCertificate", [32]byte(fp), storageURI, signature)
	if err != nil {
		return nil, err
	}

	issuance := &core.Issuance{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Fee:         receiptFee(receipt),
	}

	id, err := extractIssuedID(l.contract, l.abi, l.address, receipt)
	if err != nil {
		return issuance, &core.IDExtractionError{TxHash: issuance.TxHash, Err: err}
	}
	issuance.CertificateID = id

	l.log.WithFields(logrus.Fields{
		"certificate_id": id,
		"tx":             issuance.TxHash,
		"block":          issuance.BlockNumber,
		"fee_eth":        issuance.Fee.String(),
	}).Info("certificate recorded")

	return issuance, nil
}

// RevokeCertificate implements ports.Ledger
func (l *EthLedger) RevokeCertificate(ctx context.Context, id core.CertificateID, reason string) (*core.Revocation, error) {
	receipt, err := l.transact(ctx, "revokeCertificate", new(big.Int).SetUint64(uint64(id)), reason)
	if err != nil {
		return nil, err
	}
	fields := logrus.Fields{
		"certificate_id": id,
		"tx":             receipt.TxHash.Hex(),
	}
	if !revokedLogged(l.abi, l.address, id, receipt) {
		l.log.WithFields(fields).Warn("revocation mined without a CertificateRevoked event")
	} else {
		l.log.WithFields(fields).Info("certificate revoked")
	}

	return &core.Revocation{
		CertificateID: id,
		TxHash:        receipt.TxHash.Hex(),
		Reason:        reason,
	}, nil
}

// Certificate implements ports.Ledger
func (l *EthLedger) Certificate(ctx context.Context, id core.CertificateID) (*core.Certificate, error) {
	var out []interface{}
	err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "certificates", new(big.Int).SetUint64(uint64(id)))
	if err != nil {
		return nil, fmt.Errorf("%w: certificates(%d): %v", core.ErrChain, id, err)
	}
	return decodeCertificate(id, out)
}

// Count implements ports.Ledger
func (l *EthLedger) Count(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "certCount"); err != nil {
		return 0, fmt.Errorf("%w: certCount: %v", core.ErrChain, err)
	}
	count := *abi.ConvertType(out[0], new(big.Int)).(*big.Int)
	return count.Uint64(), nil
}

// transact sends a registry call and waits for it to be mined
func (l *EthLedger) transact(ctx context.Context, method string, params ...interface{}) (*types.Receipt, error) {
	if l.auth == nil {
		return nil, fmt.Errorf("%w: ledger is read-only", core.ErrChain)
	}

	opts := *l.auth
	opts.Context = ctx

	tx, err := l.contract.Transact(&opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrChain, method, err)
	}

	l.log.WithFields(logrus.Fields{
		"method": method,
		"tx":     tx.Hash().Hex(),
	}).Debug("transaction sent")

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, l.client, tx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s: no receipt for %s after %s", core.ErrNetwork, method, tx.Hash().Hex(), l.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: waiting for %s: %v", core.ErrChain, method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s in %s", core.ErrTxReverted, method, tx.Hash().Hex())
	}
	return receipt, nil
}

// extractIssuedID finds the registry's CertificateIssued event in receipt
func extractIssuedID(contract *bind.BoundContract, parsed abi.ABI, registry common.Address, receipt *types.Receipt) (core.CertificateID, error) {
	event := parsed.Events[EventCertificateIssued]
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != registry || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		var ev certificateIssued
		if err := contract.UnpackLog(&ev, EventCertificateIssued, *lg); err != nil {
			return 0, fmt.Errorf("unpack %s: %w", EventCertificateIssued, err)
		}
		if ev.Id == nil || !ev.Id.IsUint64() {
			return 0, errors.New("certificate id out of range")
		}
		return core.CertificateID(ev.Id.Uint64()), nil
	}
	return 0, fmt.Errorf("no %s event in receipt", EventCertificateIssued)
}

// revokedLogged reports whether receipt carries the registry's
// CertificateRevoked event for id
func revokedLogged(parsed abi.ABI, registry common.Address, id core.CertificateID, receipt *types.Receipt) bool {
	event := parsed.Events[EventCertificateRevoked]
	want := common.BigToHash(new(big.Int).SetUint64(uint64(id)))
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != registry || len(lg.Topics) < 2 {
			continue
		}
		if lg.Topics[0] == event.ID && lg.Topics[1] == want {
			return true
		}
	}
	return false
}

// decodeCertificate converts certificates(uint256) outputs
func decodeCertificate(id core.CertificateID, out []interface{}) (*core.Certificate, error) {
	if len(out) != 7 {
		return nil, fmt.Errorf("%w: certificates returned %d values", core.ErrChain, len(out))
	}

	hash := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	uri := *abi.ConvertType(out[1], new(string)).(*string)
	issuer := *abi.ConvertType(out[2], new(common.Address)).(*common.Address)
	signature := *abi.ConvertType(out[3], new([]byte)).(*[]byte)
	issuedAt := *abi.ConvertType(out[4], new(big.Int)).(*big.Int)
	revoked := *abi.ConvertType(out[5], new(bool)).(*bool)
	reason := *abi.ConvertType(out[6], new(string)).(*string)

	if issuer == (common.Address{}) {
		return nil, fmt.Errorf("%w: id %d", core.ErrCertificateNotFound, id)
	}

	return &core.Certificate{
		ID:               id,
		DocumentHash:     core.Fingerprint(hash),
		StorageURI:       uri,
		Issuer:           strings.ToLower(issuer.Hex()),
		Signature:        signature,
		IssuedAt:         time.Unix(issuedAt.Int64(), 0).UTC(),
		Revoked:          revoked,
		RevocationReason: reason,
	}, nil
}

// receiptFee is gas used times effective gas price, in ether
func receiptFee(receipt *types.Receipt) decimal.Decimal {
	if receipt.EffectiveGasPrice == nil {
		return decimal.Zero
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	return decimal.NewFromBigInt(wei, -weiDecimals)
}
