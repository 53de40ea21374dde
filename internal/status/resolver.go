package status

import (
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CertStatus is the outcome of a status query.
type CertStatus int

const (
	// StatusGood — the certificate is known and not revoked.
	StatusGood CertStatus = iota
	// StatusRevoked — the certificate is revoked; Reason/RevokedAt carry
	// detail when known.
	StatusRevoked
	// StatusUnknownCert — the issuer is known but the certificate is not.
	StatusUnknownCert
	// StatusUnknownIssuer — no active issuer matches the request.
	StatusUnknownIssuer
	// StatusUnavailable — cached revocation data is stale; the caller should
	// retry after the next CRL refresh rather than treat this as an answer.
	StatusUnavailable
)

func (s CertStatus) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusRevoked:
		return "revoked"
	case StatusUnknownCert:
		return "unknown-certificate"
	case StatusUnknownIssuer:
		return "unknown-issuer"
	case StatusUnavailable:
		return "unavailable"
	}
	return "invalid"
}

// Result carries a status outcome plus revocation detail when known.
type Result struct {
	Status    CertStatus
	CaID      int
	Reason    int
	RevokedAt time.Time
}

// CertRecord is one cached per-certificate revocation record.
type CertRecord struct {
	Revoked   bool
	Reason    int
	RevokedAt time.Time
}

// CertSource supplies cached per-certificate records. Implementations must
// answer from memory; the resolver is a pure decision function and never
// blocks on I/O. A source that cannot enumerate the issuer's certificates
// should report unrevoked serials as found-and-good.
type CertSource interface {
	Lookup(caID int, serial *big.Int) (CertRecord, bool)
}

// MemoryCertSource is a CertSource over an in-memory record table, populated
// by whatever component processes CRLs. Refreshes happen off the query path;
// queries take the read lock only.
type MemoryCertSource struct {
	mu      sync.RWMutex
	records map[deltaKey]CertRecord
}

// NewMemoryCertSource returns an empty source.
func NewMemoryCertSource() *MemoryCertSource {
	return &MemoryCertSource{records: make(map[deltaKey]CertRecord)}
}

// Put stores the record for one certificate.
func (s *MemoryCertSource) Put(caID int, serial *big.Int, rec CertRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key(caID, serial)] = rec
}

// PruneIssuer drops every record of one issuer.
func (s *MemoryCertSource) PruneIssuer(caID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.records {
		if k.caID == caID {
			delete(s.records, k)
		}
	}
}

// Lookup implements CertSource.
func (s *MemoryCertSource) Lookup(caID int, serial *big.Int) (CertRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key(caID, serial)]
	return rec, ok
}

// Resolver answers certificate status queries from the issuer store, the
// delta-CRL cache and a cert record source. It performs no fetching and no
// signing; everything it consults is already in memory.
type Resolver struct {
	store  *IssuerStore
	delta  *DeltaCrlCache
	certs  CertSource
	now    func() time.Time
	logger *zap.Logger
}

// NewResolver creates a resolver. delta may be nil to disable delta-CRL
// precedence; certs may be nil when no per-certificate records are cached
// (every in-date query then answers unknown-certificate).
func NewResolver(store *IssuerStore, delta *DeltaCrlCache, certs CertSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:  store,
		delta:  delta,
		certs:  certs,
		now:    time.Now,
		logger: logger,
	}
}

// ResolveByFingerprint answers a query identifying the issuer by fingerprint.
func (r *Resolver) ResolveByFingerprint(fp []byte, serial *big.Int) Result {
	issuer, ok := r.store.ByFingerprint(fp)
	if !ok {
		return Result{Status: StatusUnknownIssuer}
	}
	return r.resolve(issuer.ID, serial)
}

// ResolveByIssuerID answers a query identifying the issuer by CA id.
func (r *Resolver) ResolveByIssuerID(caID int, serial *big.Int) Result {
	if !r.store.HasID(caID) {
		return Result{Status: StatusUnknownIssuer}
	}
	return r.resolve(caID, serial)
}

func (r *Resolver) resolve(caID int, serial *big.Int) Result {
	// A delta-CRL hit wins over everything else: the serial was revoked in
	// an update the base view has not absorbed yet, so even a stale base
	// record must not mask it.
	if r.delta != nil && r.delta.Contains(caID, serial) {
		return Result{Status: StatusRevoked, CaID: caID}
	}

	info, ok := r.store.CrlInfo(caID)
	if !ok || !info.Usable(r.now()) {
		r.logger.Debug("revocation data unusable",
			zap.Int("ca_id", caID),
			zap.Bool("cached", ok),
		)
		return Result{Status: StatusUnavailable, CaID: caID}
	}

	if r.certs == nil {
		return Result{Status: StatusUnknownCert, CaID: caID}
	}
	rec, found := r.certs.Lookup(caID, serial)
	if !found {
		return Result{Status: StatusUnknownCert, CaID: caID}
	}
	if rec.Revoked {
		return Result{Status: StatusRevoked, CaID: caID, Reason: rec.Reason, RevokedAt: rec.RevokedAt}
	}
	return Result{Status: StatusGood, CaID: caID}
}
