// Package status implements the read-hot-path side of the platform: the
// issuer store indexing active CAs by fingerprint, the cached CRL metadata,
// and the resolver answering "is this certificate valid?" queries without any
// per-request I/O.
package status

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"github.com/canopy-pki/canopy/internal/pkiutil"
)

// IssuerEntry identifies one issuing CA on the status hot path. The
// fingerprint is computed once at construction; lookups only ever compare
// the precomputed bytes.
type IssuerEntry struct {
	ID          int
	Fingerprint []byte

	// Cert is the issuer certificate, kept for certificate-chain validation
	// by the protocol layer.
	Cert *x509.Certificate
}

// NewIssuerEntry builds an entry from an issuer certificate.
func NewIssuerEntry(id int, cert *x509.Certificate) *IssuerEntry {
	return &IssuerEntry{
		ID:          id,
		Fingerprint: ComputeFingerprint(cert),
		Cert:        cert,
	}
}

// ComputeFingerprint hashes the issuer's distinguished name together with its
// public key. Requests identify issuers by this value.
func ComputeFingerprint(cert *x509.Certificate) []byte {
	h := sha256.New()
	h.Write(cert.RawSubject)
	h.Write(cert.RawSubjectPublicKeyInfo)
	return h.Sum(nil)
}

// MatchFingerprint reports whether fp equals this issuer's precomputed
// fingerprint, byte for byte.
func (e *IssuerEntry) MatchFingerprint(fp []byte) bool {
	return bytes.Equal(e.Fingerprint, fp)
}

// IssuersFromCas derives issuer entries from CA configuration entries. Every
// CA passed in must carry a parseable certificate; entries come from
// Registry.ActiveCas which already filters on status and certificate
// presence.
func IssuersFromCas(cas []*model.CaEntry) ([]*IssuerEntry, error) {
	issuers := make([]*IssuerEntry, 0, len(cas))
	for _, ca := range cas {
		cert, err := pkiutil.ParseCertificatePEM([]byte(ca.CertPEM))
		if err != nil {
			return nil, fmt.Errorf("CA %q: %w", ca.Name, err)
		}
		issuers = append(issuers, NewIssuerEntry(ca.ID, cert))
	}
	return issuers, nil
}
