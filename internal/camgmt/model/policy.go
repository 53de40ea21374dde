package model

import (
	"sort"
	"strings"
)

// CaStatus is the lifecycle state of a certificate authority.
type CaStatus string

const (
	CaStatusActive   CaStatus = "active"
	CaStatusInactive CaStatus = "inactive"
)

// ParseCaStatus resolves a status name, case-insensitively. The second return
// value is false for unknown names; callers batch-validate whole requests and
// report every bad value, so parsing never fails hard.
func ParseCaStatus(s string) (CaStatus, bool) {
	switch strings.ToLower(s) {
	case string(CaStatusActive):
		return CaStatusActive, true
	case string(CaStatusInactive):
		return CaStatusInactive, true
	}
	return "", false
}

func (s CaStatus) valid() bool {
	return s == CaStatusActive || s == CaStatusInactive
}

// DuplicationMode governs whether multiple valid certificates may share a key
// or subject.
type DuplicationMode int

const (
	DupForbidden DuplicationMode = iota + 1
	DupForbiddenWithinProfile
	DupPermitted
)

var dupModeNames = map[DuplicationMode]string{
	DupForbidden:              "forbidden",
	DupForbiddenWithinProfile: "forbiddenWithinProfile",
	DupPermitted:              "permitted",
}

func (m DuplicationMode) String() string {
	if name, ok := dupModeNames[m]; ok {
		return name
	}
	return "unknown"
}

func (m DuplicationMode) valid() bool {
	_, ok := dupModeNames[m]
	return ok
}

// ParseDuplicationMode resolves a duplication-mode name or its numeric alias
// ("1", "2", "3"), matching the administrative shell surface.
func ParseDuplicationMode(s string) (DuplicationMode, bool) {
	switch strings.ToLower(s) {
	case "forbidden", "1":
		return DupForbidden, true
	case "forbiddenwithinprofile", "2":
		return DupForbiddenWithinProfile, true
	case "permitted", "3":
		return DupPermitted, true
	}
	return 0, false
}

// ValidityMode reconciles a requested certificate validity period against the
// issuing CA's own expiration.
type ValidityMode string

const (
	// ValidityStrict rejects requests whose notBefore + validity passes the
	// CA's notAfter.
	ValidityStrict ValidityMode = "STRICT"
	// ValidityLax permits certificates outliving the CA certificate.
	ValidityLax ValidityMode = "LAX"
	// ValidityCutoff truncates issued certificates at the CA's notAfter.
	ValidityCutoff ValidityMode = "CUTOFF"
)

// ParseValidityMode resolves a validity-mode name, case-insensitively.
func ParseValidityMode(s string) (ValidityMode, bool) {
	switch strings.ToUpper(s) {
	case string(ValidityStrict):
		return ValidityStrict, true
	case string(ValidityLax):
		return ValidityLax, true
	case string(ValidityCutoff):
		return ValidityCutoff, true
	}
	return "", false
}

func (m ValidityMode) valid() bool {
	return m == ValidityStrict || m == ValidityLax || m == ValidityCutoff
}

// Permission is a bitmask of independently grantable capabilities on a CA or
// a CA-requestor/CA-user binding.
type Permission uint32

const (
	PermEnroll Permission = 1 << iota
	PermRevoke
	PermUnrevoke
	PermRemove
	PermKeyUpdate
	PermGenCRL
	PermGetCRL
	PermCrossCAEnroll

	// PermAll grants every defined capability.
	PermAll = PermEnroll | PermRevoke | PermUnrevoke | PermRemove |
		PermKeyUpdate | PermGenCRL | PermGetCRL | PermCrossCAEnroll
)

var permissionNames = map[string]Permission{
	"enroll":          PermEnroll,
	"revoke":          PermRevoke,
	"unrevoke":        PermUnrevoke,
	"remove":          PermRemove,
	"key-update":      PermKeyUpdate,
	"gen-crl":         PermGenCRL,
	"get-crl":         PermGetCRL,
	"cross-ca-enroll": PermCrossCAEnroll,
	"all":             PermAll,
}

// ParsePermission resolves a single permission name.
func ParsePermission(s string) (Permission, bool) {
	p, ok := permissionNames[strings.ToLower(s)]
	return p, ok
}

// ParsePermissions combines a list of permission names into one bitmask and
// returns every name that failed to resolve, so an administrative request can
// be rejected with the complete list of offending values rather than just the
// first one.
func ParsePermissions(names []string) (Permission, []string) {
	var mask Permission
	var invalid []string
	for _, name := range names {
		p, ok := ParsePermission(name)
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		mask |= p
	}
	return mask, invalid
}

// Names expands the bitmask back into sorted permission names. PermAll is
// reported as "all".
func (p Permission) Names() []string {
	if p == PermAll {
		return []string{"all"}
	}
	var names []string
	for name, bit := range permissionNames {
		if name == "all" {
			continue
		}
		if p&bit != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Has reports whether every bit of q is granted.
func (p Permission) Has(q Permission) bool {
	return p&q == q
}

func (p Permission) valid() bool {
	return p&^PermAll == 0
}
