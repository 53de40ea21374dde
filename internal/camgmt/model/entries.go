package model

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ClearValue is the reserved sentinel an administrator passes to clear an
// optional field in a change request, distinguishing "set to empty" from
// "leave unchanged" (which is expressed by omitting the field entirely).
// The literal matches the historical operator surface. Comparison is
// case-insensitive.
const ClearValue = "NULL"

// IsClear reports whether s is the clear sentinel.
func IsClear(s string) bool {
	return strings.EqualFold(s, ClearValue)
}

// CRLReason is an RFC 5280 revocation reason code.
type CRLReason int

const (
	ReasonUnspecified          CRLReason = 0
	ReasonKeyCompromise        CRLReason = 1
	ReasonCACompromise         CRLReason = 2
	ReasonAffiliationChanged   CRLReason = 3
	ReasonSuperseded           CRLReason = 4
	ReasonCessationOfOperation CRLReason = 5
	ReasonCertificateHold      CRLReason = 6
	ReasonRemoveFromCRL        CRLReason = 8
)

// CaUris groups the distribution-point URI sets published in certificates
// issued by a CA.
type CaUris struct {
	CaCertURIs   []string `json:"cacert_uris,omitempty"`
	CrlURIs      []string `json:"crl_uris,omitempty"`
	DeltaCrlURIs []string `json:"deltacrl_uris,omitempty"`
	OcspURIs     []string `json:"ocsp_uris,omitempty"`
}

func (u CaUris) clone() CaUris {
	return CaUris{
		CaCertURIs:   slices.Clone(u.CaCertURIs),
		CrlURIs:      slices.Clone(u.CrlURIs),
		DeltaCrlURIs: slices.Clone(u.DeltaCrlURIs),
		OcspURIs:     slices.Clone(u.OcspURIs),
	}
}

// RevocationInfo records why and when a CA was revoked. A revoked CA must
// reject further issuance.
type RevocationInfo struct {
	Reason       CRLReason `json:"reason"`
	RevokedAt    time.Time `json:"revoked_at"`
	InvalidityAt time.Time `json:"invalidity_at,omitempty"` // zero means same as RevokedAt
}

// CaEntry is the authoritative configuration of one certificate authority.
type CaEntry struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Status CaStatus `json:"status"`

	// SerialNoLen is the byte length of serial numbers of issued certificates.
	SerialNoLen int    `json:"sn_len"`
	Uris        CaUris `json:"uris"`

	MaxValidity time.Duration `json:"max_validity"`

	SignerType string `json:"signer_type"`
	// SignerConf is an opaque key-value blob interpreted by the signer
	// implementation, never by the registry.
	SignerConf string `json:"signer_conf,omitempty"`
	// CertPEM is the CA's public-key certificate, when already known.
	CertPEM string `json:"cert_pem,omitempty"`

	CrlSignerName  string `json:"crl_signer,omitempty"`
	ResponderName  string `json:"responder,omitempty"`
	CmpControlName string `json:"cmp_control,omitempty"`

	Permissions          Permission      `json:"permissions"`
	DuplicateKeyMode     DuplicationMode `json:"duplicate_key"`
	DuplicateSubjectMode DuplicationMode `json:"duplicate_subject"`
	SaveRequest          bool            `json:"save_request"`
	ValidityMode         ValidityMode    `json:"validity_mode"`

	// ExpirationPeriodDays is how many days before its own expiry the CA
	// stops issuing certificates.
	ExpirationPeriodDays int `json:"expiration_period"`
	// NumCrls is how many generated CRLs are retained.
	NumCrls             int   `json:"num_crls"`
	KeepExpiredCertDays int   `json:"keep_expired_cert_days"`
	NextCrlNo           int64 `json:"next_crl_no"`

	ExtraControl string `json:"extra_control,omitempty"`

	Revocation *RevocationInfo `json:"revocation,omitempty"`
}

// Clone returns a deep copy. Registry lookups hand out clones so no caller
// can mutate a published snapshot.
func (e *CaEntry) Clone() *CaEntry {
	cp := *e
	cp.Uris = e.Uris.clone()
	if e.Revocation != nil {
		rev := *e.Revocation
		cp.Revocation = &rev
	}
	return &cp
}

// Revoked reports whether the CA is in revoked state.
func (e *CaEntry) Revoked() bool { return e.Revocation != nil }

// Validate checks the entry against the registry's invariants before it is
// accepted. It reports the first offending field.
func (e *CaEntry) Validate() error {
	if e.Name == "" {
		return invalidf("ca", "", "name", "must not be empty")
	}
	if e.ID <= 0 {
		return invalidf("ca", e.Name, "id", "must be a positive integer, got %d", e.ID)
	}
	if !e.Status.valid() {
		return invalidf("ca", e.Name, "status", "unknown status %q", string(e.Status))
	}
	if e.SerialNoLen < 8 || e.SerialNoLen > 20 {
		return invalidf("ca", e.Name, "sn_len", "must be between 8 and 20 bytes, got %d", e.SerialNoLen)
	}
	if e.SignerType == "" {
		return invalidf("ca", e.Name, "signer_type", "must not be empty")
	}
	if !e.DuplicateKeyMode.valid() {
		return invalidf("ca", e.Name, "duplicate_key", "unknown duplication mode %d", int(e.DuplicateKeyMode))
	}
	if !e.DuplicateSubjectMode.valid() {
		return invalidf("ca", e.Name, "duplicate_subject", "unknown duplication mode %d", int(e.DuplicateSubjectMode))
	}
	if !e.ValidityMode.valid() {
		return invalidf("ca", e.Name, "validity_mode", "unknown validity mode %q", string(e.ValidityMode))
	}
	if !e.Permissions.valid() {
		return invalidf("ca", e.Name, "permissions", "mask 0x%x contains undefined bits", uint32(e.Permissions))
	}
	if e.MaxValidity <= 0 {
		return invalidf("ca", e.Name, "max_validity", "must be positive")
	}
	if e.ExpirationPeriodDays < 0 {
		return invalidf("ca", e.Name, "expiration_period", "must not be negative, got %d", e.ExpirationPeriodDays)
	}
	if e.NumCrls <= 0 {
		return invalidf("ca", e.Name, "num_crls", "must be positive, got %d", e.NumCrls)
	}
	if e.KeepExpiredCertDays < 0 {
		return invalidf("ca", e.Name, "keep_expired_cert_days", "must not be negative, got %d", e.KeepExpiredCertDays)
	}
	if e.NextCrlNo < 1 {
		return invalidf("ca", e.Name, "next_crl_no", "must be at least 1, got %d", e.NextCrlNo)
	}
	if e.Revocation != nil && e.Revocation.RevokedAt.IsZero() {
		return invalidf("ca", e.Name, "revocation.revoked_at", "must be set on a revoked CA")
	}
	return nil
}

// CaAlias maps an alternative name onto a CA id. Alias names are globally
// unique; one CA may carry any number of aliases.
type CaAlias struct {
	Name string `json:"name"`
	CaID int    `json:"ca_id"`
}

func (a CaAlias) Validate() error {
	if a.Name == "" {
		return invalidf("caalias", "", "name", "must not be empty")
	}
	if a.CaID <= 0 {
		return invalidf("caalias", a.Name, "ca_id", "must be a positive integer, got %d", a.CaID)
	}
	return nil
}

// SignerEntry is a named signing-key binding: the type selects the signer
// implementation, the conf is opaque to the registry.
type SignerEntry struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Conf    string `json:"conf"`
	CertPEM string `json:"cert_pem,omitempty"`
}

func (e *SignerEntry) Validate() error { return validateSignerLike("signer", e.Name, e.Type, e.Conf) }

// CrlSignerEntry configures the signer used for CRL generation, plus the
// CRL-control string steering interval and scope.
type CrlSignerEntry struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Conf       string `json:"conf"`
	CertPEM    string `json:"cert_pem,omitempty"`
	CrlControl string `json:"crl_control,omitempty"`
}

func (e *CrlSignerEntry) Validate() error {
	return validateSignerLike("crlsigner", e.Name, e.Type, e.Conf)
}

// ResponderEntry configures the OCSP/CMP responder signer.
type ResponderEntry struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Conf    string `json:"conf"`
	CertPEM string `json:"cert_pem,omitempty"`
}

func (e *ResponderEntry) Validate() error {
	return validateSignerLike("responder", e.Name, e.Type, e.Conf)
}

func validateSignerLike(kind, name, typ, conf string) error {
	if name == "" {
		return invalidf(kind, "", "name", "must not be empty")
	}
	if typ == "" {
		return invalidf(kind, name, "type", "must not be empty")
	}
	if conf == "" {
		return invalidf(kind, name, "conf", "must not be empty")
	}
	return nil
}

// RequestorEntry identifies a registration-authority client that may request
// operations on associated CAs.
type RequestorEntry struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	CertPEM string `json:"cert_pem,omitempty"`
}

func (e *RequestorEntry) Validate() error {
	if e.Name == "" {
		return invalidf("requestor", "", "name", "must not be empty")
	}
	if e.ID <= 0 {
		return invalidf("requestor", e.Name, "id", "must be a positive integer, got %d", e.ID)
	}
	return nil
}

// UserEntry is a password-authenticated administrative user.
type UserEntry struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	PasswordHash string `json:"password_hash,omitempty"`
}

func (e *UserEntry) Validate() error {
	if e.Name == "" {
		return invalidf("user", "", "name", "must not be empty")
	}
	if e.ID <= 0 {
		return invalidf("user", e.Name, "id", "must be a positive integer, got %d", e.ID)
	}
	return nil
}

// SetPassword stores a bcrypt hash of the given password.
func (e *UserEntry) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	e.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the password matches the stored hash.
func (e *UserEntry) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(password)) == nil
}

// ProfileEntry names a certificate profile and its opaque configuration.
type ProfileEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Conf string `json:"conf,omitempty"`
}

func (e *ProfileEntry) Validate() error { return validateIDName("profile", e.ID, e.Name, e.Type) }

// PublisherEntry names a certificate publisher and its opaque configuration.
type PublisherEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Conf string `json:"conf,omitempty"`
}

func (e *PublisherEntry) Validate() error { return validateIDName("publisher", e.ID, e.Name, e.Type) }

func validateIDName(kind string, id int, name, typ string) error {
	if name == "" {
		return invalidf(kind, "", "name", "must not be empty")
	}
	if id <= 0 {
		return invalidf(kind, name, "id", "must be a positive integer, got %d", id)
	}
	if typ == "" {
		return invalidf(kind, name, "type", "must not be empty")
	}
	return nil
}

// CmpControlEntry is a named CMP protocol control configuration.
type CmpControlEntry struct {
	Name string `json:"name"`
	Conf string `json:"conf,omitempty"`
}

func (e *CmpControlEntry) Validate() error {
	if e.Name == "" {
		return invalidf("cmpcontrol", "", "name", "must not be empty")
	}
	return nil
}

// ScepEntry is the per-CA SCEP endpoint configuration. At most one per CA.
type ScepEntry struct {
	CaID          int      `json:"ca_id"`
	Active        bool     `json:"active"`
	Profiles      []string `json:"profiles,omitempty"`
	ResponderName string   `json:"responder,omitempty"`
	Control       string   `json:"control,omitempty"`
}

func (e *ScepEntry) Validate() error {
	if e.CaID <= 0 {
		return invalidf("scep", "", "ca_id", "must be a positive integer, got %d", e.CaID)
	}
	return nil
}

// Clone returns a deep copy.
func (e *ScepEntry) Clone() *ScepEntry {
	cp := *e
	cp.Profiles = slices.Clone(e.Profiles)
	return &cp
}

// CaHasRequestor associates a requestor with a CA, restricted to a permission
// mask and an optional profile whitelist. RA marks the requestor as a full
// registration authority for this CA.
type CaHasRequestor struct {
	CaID          int        `json:"ca_id"`
	RequestorName string     `json:"requestor"`
	RA            bool       `json:"ra"`
	Permissions   Permission `json:"permissions"`
	Profiles      []string   `json:"profiles,omitempty"`
}

// CaHasUser associates a user with a CA under a permission mask and an
// optional profile whitelist.
type CaHasUser struct {
	CaID        int        `json:"ca_id"`
	UserName    string     `json:"user"`
	Permissions Permission `json:"permissions"`
	Profiles    []string   `json:"profiles,omitempty"`
}

// CaHasProfile associates a certificate profile with a CA.
type CaHasProfile struct {
	CaID      int `json:"ca_id"`
	ProfileID int `json:"profile_id"`
}

// CaHasPublisher associates a publisher with a CA.
type CaHasPublisher struct {
	CaID        int `json:"ca_id"`
	PublisherID int `json:"publisher_id"`
}
