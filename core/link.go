package core

import (
	"fmt"
	"net/url"
	"strconv"
)

// Query parameter names of a shareable verification link
const (
	LinkParamCertificateID = "certId"
	LinkParamTransaction   = "tx"
	LinkParamLocator       = "encfile"
	LinkParamKey           = "key"
)

// ShareableLink bundles everything a viewer needs to open a certificate.
// Whoever holds it can decrypt the document, so treat it as a secret.
type ShareableLink struct {
	CertificateID  CertificateID
	TransactionRef string
	Locator        string
	KeyHex         string
}

// Query encodes the link parameters
func (l ShareableLink) Query() url.Values {
	q := url.Values{}
	q.Set(LinkParamCertificateID, strconv.FormatUint(uint64(l.CertificateID), 10))
	q.Set(LinkParamTransaction, l.TransactionRef)
	q.Set(LinkParamLocator, l.Locator)
	q.Set(LinkParamKey, l.KeyHex)
	return q
}

// URL renders the link against base, replacing any query base already has
func (l ShareableLink) URL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: base url: %v", ErrValidation, err)
	}
	u.RawQuery = l.Query().Encode()
	return u.String(), nil
}

// LinkFromQuery reads link parameters. The key and locator are required,
// the certificate id is required for the ledger cross-check only.
func LinkFromQuery(q url.Values) (ShareableLink, error) {
	l := ShareableLink{
		TransactionRef: q.Get(LinkParamTransaction),
		Locator:        q.Get(LinkParamLocator),
		KeyHex:         q.Get(LinkParamKey),
	}
	if l.Locator == "" || l.KeyHex == "" {
		return l, fmt.Errorf("%w: missing parameters", ErrInvalidLink)
	}
	if raw := q.Get(LinkParamCertificateID); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return l, fmt.Errorf("%w: certificate id %q", ErrInvalidLink, raw)
		}
		l.CertificateID = CertificateID(id)
	}
	return l, nil
}

// ParseLink parses a full verification URL
func ParseLink(raw string) (ShareableLink, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ShareableLink{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	return LinkFromQuery(u.Query())
}
