package status_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/canopy-pki/canopy/internal/status"
)

// freshCrl marks issuer id as carrying in-date revocation data.
func freshCrl(s *status.IssuerStore, id int) {
	now := time.Now()
	s.SetCrlInfo(id, &status.CrlInfo{
		Number:     1,
		ThisUpdate: now.Add(-time.Hour),
		NextUpdate: now.Add(time.Hour),
	})
}

func TestResolve_unknownIssuer(t *testing.T) {
	store := status.NewIssuerStore()
	r := status.NewResolver(store, status.NewDeltaCrlCache(), status.NewMemoryCertSource(), nil)

	res := r.ResolveByIssuerID(42, big.NewInt(1))
	if res.Status != status.StatusUnknownIssuer {
		t.Errorf("status = %v, want unknown-issuer", res.Status)
	}
	res = r.ResolveByFingerprint([]byte{0x01}, big.NewInt(1))
	if res.Status != status.StatusUnknownIssuer {
		t.Errorf("status = %v, want unknown-issuer", res.Status)
	}
}

func TestResolve_goodRevokedUnknownCert(t *testing.T) {
	store := status.NewIssuerStore()
	issuer := testIssuer(t, 1, "CA One")
	if err := store.SetIssuers([]*status.IssuerEntry{issuer}); err != nil {
		t.Fatalf("SetIssuers: %v", err)
	}
	freshCrl(store, 1)

	certs := status.NewMemoryCertSource()
	revokedAt := time.Now().Add(-24 * time.Hour).UTC()
	certs.Put(1, big.NewInt(100), status.CertRecord{Revoked: false})
	certs.Put(1, big.NewInt(200), status.CertRecord{Revoked: true, Reason: 1, RevokedAt: revokedAt})

	r := status.NewResolver(store, status.NewDeltaCrlCache(), certs, nil)

	if res := r.ResolveByIssuerID(1, big.NewInt(100)); res.Status != status.StatusGood || res.CaID != 1 {
		t.Errorf("serial 100: %+v, want good", res)
	}
	res := r.ResolveByIssuerID(1, big.NewInt(200))
	if res.Status != status.StatusRevoked || res.Reason != 1 || !res.RevokedAt.Equal(revokedAt) {
		t.Errorf("serial 200: %+v, want revoked with detail", res)
	}
	if res := r.ResolveByIssuerID(1, big.NewInt(300)); res.Status != status.StatusUnknownCert {
		t.Errorf("serial 300: %+v, want unknown-certificate", res)
	}

	// Same answers through fingerprint identification.
	if res := r.ResolveByFingerprint(issuer.Fingerprint, big.NewInt(100)); res.Status != status.StatusGood {
		t.Errorf("fingerprint path: %+v, want good", res)
	}
}

func TestResolve_staleCrlNeverReportsGood(t *testing.T) {
	store := status.NewIssuerStore()
	if err := store.SetIssuers([]*status.IssuerEntry{testIssuer(t, 1, "CA One")}); err != nil {
		t.Fatalf("SetIssuers: %v", err)
	}
	certs := status.NewMemoryCertSource()
	certs.Put(1, big.NewInt(100), status.CertRecord{Revoked: false})
	r := status.NewResolver(store, status.NewDeltaCrlCache(), certs, nil)

	// No CRL metadata at all.
	if res := r.ResolveByIssuerID(1, big.NewInt(100)); res.Status != status.StatusUnavailable {
		t.Errorf("no metadata: %+v, want unavailable", res)
	}

	// Metadata present but past NextUpdate.
	store.SetCrlInfo(1, &status.CrlInfo{
		Number:     1,
		ThisUpdate: time.Now().Add(-48 * time.Hour),
		NextUpdate: time.Now().Add(-24 * time.Hour),
	})
	if res := r.ResolveByIssuerID(1, big.NewInt(100)); res.Status != status.StatusUnavailable {
		t.Errorf("stale metadata: %+v, want unavailable", res)
	}
}

func TestResolve_deltaHitWinsOverEverything(t *testing.T) {
	store := status.NewIssuerStore()
	if err := store.SetIssuers([]*status.IssuerEntry{testIssuer(t, 1, "CA One")}); err != nil {
		t.Fatalf("SetIssuers: %v", err)
	}

	delta := status.NewDeltaCrlCache()
	serial := big.NewInt(100)
	delta.Put(1, serial)

	// Base record says good, CRL metadata is stale — the delta hit still
	// answers revoked.
	certs := status.NewMemoryCertSource()
	certs.Put(1, serial, status.CertRecord{Revoked: false})
	r := status.NewResolver(store, delta, certs, nil)

	if res := r.ResolveByIssuerID(1, serial); res.Status != status.StatusRevoked {
		t.Errorf("delta hit: %+v, want revoked", res)
	}

	// After reconciliation the base view answers again.
	delta.Remove(1, serial)
	freshCrl(store, 1)
	if res := r.ResolveByIssuerID(1, serial); res.Status != status.StatusGood {
		t.Errorf("after reconciliation: %+v, want good", res)
	}
}

func TestResolve_nilCertSource(t *testing.T) {
	store := status.NewIssuerStore()
	if err := store.SetIssuers([]*status.IssuerEntry{testIssuer(t, 1, "CA One")}); err != nil {
		t.Fatalf("SetIssuers: %v", err)
	}
	freshCrl(store, 1)
	r := status.NewResolver(store, nil, nil, nil)

	if res := r.ResolveByIssuerID(1, big.NewInt(1)); res.Status != status.StatusUnknownCert {
		t.Errorf("%+v, want unknown-certificate", res)
	}
}

func TestDeltaCrlCache_pruneIssuer(t *testing.T) {
	c := status.NewDeltaCrlCache()
	c.Put(1, big.NewInt(10))
	c.Put(1, big.NewInt(11))
	c.Put(2, big.NewInt(10))

	if n := c.PruneIssuer(1); n != 2 {
		t.Errorf("PruneIssuer(1) = %d, want 2", n)
	}
	if c.Contains(1, big.NewInt(10)) {
		t.Error("pruned entry still present")
	}
	if !c.Contains(2, big.NewInt(10)) {
		t.Error("unrelated issuer's entry pruned")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestCertStatusString(t *testing.T) {
	cases := map[status.CertStatus]string{
		status.StatusGood:          "good",
		status.StatusRevoked:       "revoked",
		status.StatusUnknownCert:   "unknown-certificate",
		status.StatusUnknownIssuer: "unknown-issuer",
		status.StatusUnavailable:   "unavailable",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
