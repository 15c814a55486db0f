package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/Kizaaaa/certichain/core"
)

// EIP712Domain binds attestations to one registry deployment
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// RegistryDomain is the domain used for certificate attestations
func RegistryDomain(chainID uint64, registry common.Address) EIP712Domain {
	return EIP712Domain{
		Name:              "CertificateRegistry",
		Version:           "1",
		ChainID:           new(big.Int).SetUint64(chainID),
		VerifyingContract: registry,
	}
}

var attestationTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Certificate": {
		{Name: "documentHash", Type: "bytes32"},
		{Name: "storageURI", Type: "string"},
	},
}

// AttestationHash returns the EIP-712 digest an issuer signs for a document
func AttestationHash(domain EIP712Domain, fp core.Fingerprint, storageURI string) ([]byte, error) {
	typed := apitypes.TypedData{
		Types:       attestationTypes,
		PrimaryType: "Certificate",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"documentHash": "0x" + fp.Hex(),
			"storageURI":   storageURI,
		},
	}
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("%w: eip712: %v", core.ErrCrypto, err)
	}
	return hash, nil
}
