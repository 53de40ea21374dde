package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"go.uber.org/zap"
)

// AddCa validates and inserts a new CA. Name collisions are detected
// case-insensitively.
func (r *Registry) AddCa(ctx context.Context, ca *model.CaEntry) error {
	if err := ca.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.cas[nameKey(ca.Name)]; dup {
		return fmt.Errorf("%w: CA name %q", ErrDuplicate, ca.Name)
	}
	if _, dup := snap.caByID[ca.ID]; dup {
		return fmt.Errorf("%w: CA id %d", ErrDuplicate, ca.ID)
	}
	if err := r.checkCaRefs(snap, ca); err != nil {
		return err
	}

	entry := ca.Clone()
	if r.store != nil {
		if err := r.store.SaveCa(ctx, entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.cas[nameKey(entry.Name)] = entry
	next.caByID[entry.ID] = entry
	r.publish(next)

	r.logger.Info("CA added", zap.String("ca", entry.Name), zap.Int("id", entry.ID))
	return nil
}

// checkCaRefs verifies the CA's by-name bindings against the snapshot.
func (r *Registry) checkCaRefs(snap *snapshot, ca *model.CaEntry) error {
	if ca.CrlSignerName != "" {
		if _, ok := snap.crlSigners[nameKey(ca.CrlSignerName)]; !ok {
			return fmt.Errorf("%w: CRL signer %q", ErrNotFound, ca.CrlSignerName)
		}
	}
	if ca.ResponderName != "" {
		if _, ok := snap.responders[nameKey(ca.ResponderName)]; !ok {
			return fmt.Errorf("%w: responder %q", ErrNotFound, ca.ResponderName)
		}
	}
	if ca.CmpControlName != "" {
		if _, ok := snap.cmpControls[nameKey(ca.CmpControlName)]; !ok {
			return fmt.Errorf("%w: CMP control %q", ErrNotFound, ca.CmpControlName)
		}
	}
	return nil
}

// CaChanges carries a partial update for ChangeCa. A nil field keeps the
// prior value. Fields documented as clearable accept model.ClearValue to set
// the value to empty; for the URI sets the sentinel must be the sole element.
type CaChanges struct {
	Status      *string
	SerialNoLen *int

	CaCertURIs   []string
	CrlURIs      []string
	DeltaCrlURIs []string
	OcspURIs     []string

	MaxValidity *time.Duration

	SignerType *string
	SignerConf *string
	CertPEM    *string

	CrlSignerName  *string // clearable
	ResponderName  *string // clearable
	CmpControlName *string // clearable

	Permissions      []string
	DuplicateKey     *string
	DuplicateSubject *string
	SaveRequest      *bool
	ValidityMode     *string

	ExpirationPeriodDays *int
	NumCrls              *int
	KeepExpiredCertDays  *int
	NextCrlNo            *int64

	ExtraControl *string // clearable
}

// ChangeCa applies a partial update to an existing CA. All enumerated values
// in the request are resolved up front and every invalid one is reported
// before anything is applied; on any failure the registry is left unchanged.
// The returned string describes the applied changes.
func (r *Registry) ChangeCa(ctx context.Context, name string, ch CaChanges) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	prior, ok := snap.cas[nameKey(name)]
	if !ok {
		return "", fmt.Errorf("%w: CA %q", ErrNotFound, name)
	}

	// Resolve every enumerated value first so one request reports all of its
	// bad values, not just the first.
	var (
		verrs   []error
		status  model.CaStatus
		dupKey  model.DuplicationMode
		dupSubj model.DuplicationMode
		vmode   model.ValidityMode
		perms   model.Permission
	)
	if ch.Status != nil {
		if status, ok = model.ParseCaStatus(*ch.Status); !ok {
			verrs = append(verrs, &model.ValidationError{
				Kind: "ca", Name: prior.Name, Field: "status",
				Reason: fmt.Sprintf("unknown status %q", *ch.Status),
			})
		}
	}
	if ch.DuplicateKey != nil {
		if dupKey, ok = model.ParseDuplicationMode(*ch.DuplicateKey); !ok {
			verrs = append(verrs, &model.ValidationError{
				Kind: "ca", Name: prior.Name, Field: "duplicate_key",
				Reason: fmt.Sprintf("unknown duplication mode %q", *ch.DuplicateKey),
			})
		}
	}
	if ch.DuplicateSubject != nil {
		// Deliberately checks the duplicate-subject parse result; an invalid
		// duplicate-subject value is rejected no matter what the
		// duplicate-key parameter holds.
		if dupSubj, ok = model.ParseDuplicationMode(*ch.DuplicateSubject); !ok {
			verrs = append(verrs, &model.ValidationError{
				Kind: "ca", Name: prior.Name, Field: "duplicate_subject",
				Reason: fmt.Sprintf("unknown duplication mode %q", *ch.DuplicateSubject),
			})
		}
	}
	if ch.ValidityMode != nil {
		if vmode, ok = model.ParseValidityMode(*ch.ValidityMode); !ok {
			verrs = append(verrs, &model.ValidationError{
				Kind: "ca", Name: prior.Name, Field: "validity_mode",
				Reason: fmt.Sprintf("unknown validity mode %q", *ch.ValidityMode),
			})
		}
	}
	if ch.Permissions != nil {
		var invalid []string
		perms, invalid = model.ParsePermissions(ch.Permissions)
		for _, bad := range invalid {
			verrs = append(verrs, &model.ValidationError{
				Kind: "ca", Name: prior.Name, Field: "permissions",
				Reason: fmt.Sprintf("unknown permission %q", bad),
			})
		}
	}
	if len(verrs) > 0 {
		return "", errors.Join(verrs...)
	}

	updated := prior.Clone()
	var changed []string
	note := func(field string) { changed = append(changed, field) }

	if ch.Status != nil {
		updated.Status = status
		note("status")
	}
	if ch.SerialNoLen != nil {
		updated.SerialNoLen = *ch.SerialNoLen
		note("sn_len")
	}
	if ch.CaCertURIs != nil {
		uris, err := applyURIs(prior.Name, "cacert_uris", ch.CaCertURIs)
		if err != nil {
			return "", err
		}
		updated.Uris.CaCertURIs = uris
		note("cacert_uris")
	}
	if ch.CrlURIs != nil {
		uris, err := applyURIs(prior.Name, "crl_uris", ch.CrlURIs)
		if err != nil {
			return "", err
		}
		updated.Uris.CrlURIs = uris
		note("crl_uris")
	}
	if ch.DeltaCrlURIs != nil {
		uris, err := applyURIs(prior.Name, "deltacrl_uris", ch.DeltaCrlURIs)
		if err != nil {
			return "", err
		}
		updated.Uris.DeltaCrlURIs = uris
		note("deltacrl_uris")
	}
	if ch.OcspURIs != nil {
		uris, err := applyURIs(prior.Name, "ocsp_uris", ch.OcspURIs)
		if err != nil {
			return "", err
		}
		updated.Uris.OcspURIs = uris
		note("ocsp_uris")
	}
	if ch.MaxValidity != nil {
		updated.MaxValidity = *ch.MaxValidity
		note("max_validity")
	}
	if ch.SignerType != nil {
		updated.SignerType = *ch.SignerType
		note("signer_type")
	}
	if ch.SignerConf != nil {
		updated.SignerConf = clearable(*ch.SignerConf)
		note("signer_conf")
	}
	if ch.CertPEM != nil {
		updated.CertPEM = clearable(*ch.CertPEM)
		note("cert")
	}
	if ch.CrlSignerName != nil {
		updated.CrlSignerName = clearable(*ch.CrlSignerName)
		note("crl_signer")
	}
	if ch.ResponderName != nil {
		updated.ResponderName = clearable(*ch.ResponderName)
		note("responder")
	}
	if ch.CmpControlName != nil {
		updated.CmpControlName = clearable(*ch.CmpControlName)
		note("cmp_control")
	}
	if ch.Permissions != nil {
		updated.Permissions = perms
		note("permissions")
	}
	if ch.DuplicateKey != nil {
		updated.DuplicateKeyMode = dupKey
		note("duplicate_key")
	}
	if ch.DuplicateSubject != nil {
		updated.DuplicateSubjectMode = dupSubj
		note("duplicate_subject")
	}
	if ch.SaveRequest != nil {
		updated.SaveRequest = *ch.SaveRequest
		note("save_request")
	}
	if ch.ValidityMode != nil {
		updated.ValidityMode = vmode
		note("validity_mode")
	}
	if ch.ExpirationPeriodDays != nil {
		updated.ExpirationPeriodDays = *ch.ExpirationPeriodDays
		note("expiration_period")
	}
	if ch.NumCrls != nil {
		updated.NumCrls = *ch.NumCrls
		note("num_crls")
	}
	if ch.KeepExpiredCertDays != nil {
		updated.KeepExpiredCertDays = *ch.KeepExpiredCertDays
		note("keep_expired_cert_days")
	}
	if ch.NextCrlNo != nil {
		updated.NextCrlNo = *ch.NextCrlNo
		note("next_crl_no")
	}
	if ch.ExtraControl != nil {
		updated.ExtraControl = clearable(*ch.ExtraControl)
		note("extra_control")
	}

	if len(changed) == 0 {
		return fmt.Sprintf("CA %q unchanged", prior.Name), nil
	}

	if err := updated.Validate(); err != nil {
		return "", err
	}
	if err := r.checkCaRefs(snap, updated); err != nil {
		return "", err
	}
	if r.store != nil {
		if err := r.store.SaveCa(ctx, updated); err != nil {
			return "", err
		}
	}

	next := snap.clone()
	next.cas[nameKey(updated.Name)] = updated
	next.caByID[updated.ID] = updated
	r.publish(next)

	desc := fmt.Sprintf("updated CA %q: %s", updated.Name, strings.Join(changed, ", "))
	r.logger.Info("CA updated", zap.String("ca", updated.Name), zap.Strings("fields", changed))
	return desc, nil
}

// applyURIs interprets a URI-set update: the clear sentinel as the sole
// element empties the set, otherwise the given list replaces it.
func applyURIs(caName, field string, in []string) ([]string, error) {
	hasClear := false
	for _, uri := range in {
		if model.IsClear(uri) {
			hasClear = true
		}
	}
	if !hasClear {
		out := make([]string, len(in))
		copy(out, in)
		return out, nil
	}
	if len(in) != 1 {
		return nil, &model.ValidationError{
			Kind: "ca", Name: caName, Field: field,
			Reason: "clear sentinel must be the only value",
		}
	}
	return nil, nil
}

// clearable maps the clear sentinel to the empty string.
func clearable(s string) string {
	if model.IsClear(s) {
		return ""
	}
	return s
}

// RemoveCa deletes a CA and cascades over every table referencing its id:
// aliases, requestor/user/profile/publisher associations and the SCEP
// binding all disappear in the same snapshot swap.
func (r *Registry) RemoveCa(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, name)
	}

	if r.store != nil {
		if err := r.store.DeleteCa(ctx, ca.ID); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.cas, nameKey(ca.Name))
	delete(next.caByID, ca.ID)
	for alias, a := range next.aliases {
		if a.CaID == ca.ID {
			delete(next.aliases, alias)
		}
	}
	delete(next.sceps, ca.ID)
	delete(next.caRequestors, ca.ID)
	delete(next.caUsers, ca.ID)
	delete(next.caProfiles, ca.ID)
	delete(next.caPublishers, ca.ID)
	r.publish(next)

	r.logger.Info("CA removed", zap.String("ca", ca.Name), zap.Int("id", ca.ID))
	return nil
}

// RevokeCa marks a CA revoked. A revoked CA must reject further issuance.
func (r *Registry) RevokeCa(ctx context.Context, name string, rev model.RevocationInfo) error {
	if rev.RevokedAt.IsZero() {
		rev.RevokedAt = time.Now().UTC()
	}
	if rev.InvalidityAt.IsZero() {
		rev.InvalidityAt = rev.RevokedAt
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	prior, ok := snap.cas[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, name)
	}
	if prior.Revoked() {
		return fmt.Errorf("%w: CA %q is already revoked", ErrDuplicate, prior.Name)
	}

	updated := prior.Clone()
	updated.Revocation = &rev
	if r.store != nil {
		if err := r.store.SaveCa(ctx, updated); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.cas[nameKey(updated.Name)] = updated
	next.caByID[updated.ID] = updated
	r.publish(next)

	r.logger.Info("CA revoked",
		zap.String("ca", updated.Name),
		zap.Int("reason", int(rev.Reason)),
		zap.Time("revoked_at", rev.RevokedAt),
	)
	return nil
}

// UnrevokeCa clears a CA's revocation state.
func (r *Registry) UnrevokeCa(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	prior, ok := snap.cas[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, name)
	}
	if !prior.Revoked() {
		return fmt.Errorf("%w: CA %q is not revoked", ErrNotFound, prior.Name)
	}

	updated := prior.Clone()
	updated.Revocation = nil
	if r.store != nil {
		if err := r.store.SaveCa(ctx, updated); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.cas[nameKey(updated.Name)] = updated
	next.caByID[updated.ID] = updated
	r.publish(next)

	r.logger.Info("CA unrevoked", zap.String("ca", updated.Name))
	return nil
}

// AddCaAlias binds a new globally unique alias to an existing CA.
func (r *Registry) AddCaAlias(ctx context.Context, alias model.CaAlias) error {
	if err := alias.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, ok := snap.caByID[alias.CaID]; !ok {
		return fmt.Errorf("%w: CA id %d", ErrNotFound, alias.CaID)
	}
	if _, dup := snap.aliases[nameKey(alias.Name)]; dup {
		return fmt.Errorf("%w: alias %q", ErrDuplicate, alias.Name)
	}

	if r.store != nil {
		if err := r.store.SaveCaAlias(ctx, alias); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.aliases[nameKey(alias.Name)] = alias
	r.publish(next)

	r.logger.Info("CA alias added", zap.String("alias", alias.Name), zap.Int("ca_id", alias.CaID))
	return nil
}

// RemoveCaAlias deletes an alias by name.
func (r *Registry) RemoveCaAlias(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, ok := snap.aliases[nameKey(name)]; !ok {
		return fmt.Errorf("%w: alias %q", ErrNotFound, name)
	}

	if r.store != nil {
		if err := r.store.DeleteCaAlias(ctx, name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.aliases, nameKey(name))
	r.publish(next)

	r.logger.Info("CA alias removed", zap.String("alias", name))
	return nil
}

// AddScep attaches a SCEP endpoint configuration to an existing CA. At most
// one SCEP entry per CA.
func (r *Registry) AddScep(ctx context.Context, e *model.ScepEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, ok := snap.caByID[e.CaID]; !ok {
		return fmt.Errorf("%w: CA id %d", ErrNotFound, e.CaID)
	}
	if _, dup := snap.sceps[e.CaID]; dup {
		return fmt.Errorf("%w: SCEP entry for CA id %d", ErrDuplicate, e.CaID)
	}
	if e.ResponderName != "" {
		if _, ok := snap.responders[nameKey(e.ResponderName)]; !ok {
			return fmt.Errorf("%w: responder %q", ErrNotFound, e.ResponderName)
		}
	}

	entry := e.Clone()
	if r.store != nil {
		if err := r.store.SaveScep(ctx, entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.sceps[entry.CaID] = entry
	r.publish(next)

	r.logger.Info("SCEP entry added", zap.Int("ca_id", entry.CaID), zap.Bool("active", entry.Active))
	return nil
}

// RemoveScep deletes the SCEP configuration of a CA.
func (r *Registry) RemoveScep(ctx context.Context, caID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, ok := snap.sceps[caID]; !ok {
		return fmt.Errorf("%w: SCEP entry for CA id %d", ErrNotFound, caID)
	}

	if r.store != nil {
		if err := r.store.DeleteScep(ctx, caID); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.sceps, caID)
	r.publish(next)

	r.logger.Info("SCEP entry removed", zap.Int("ca_id", caID))
	return nil
}
