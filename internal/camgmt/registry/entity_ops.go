package registry

import (
	"context"
	"fmt"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"go.uber.org/zap"
)

// AddRequestor inserts a new requestor with a unique name and id.
func (r *Registry) AddRequestor(ctx context.Context, e *model.RequestorEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.requestors[nameKey(e.Name)]; dup {
		return fmt.Errorf("%w: requestor %q", ErrDuplicate, e.Name)
	}
	for _, existing := range snap.requestors {
		if existing.ID == e.ID {
			return fmt.Errorf("%w: requestor id %d", ErrDuplicate, e.ID)
		}
	}

	entry := *e
	if r.store != nil {
		if err := r.store.SaveRequestor(ctx, &entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.requestors[nameKey(entry.Name)] = &entry
	r.publish(next)

	r.logger.Info("requestor added", zap.String("requestor", entry.Name), zap.Int("id", entry.ID))
	return nil
}

// RemoveRequestor deletes a requestor and drops every CA association
// referencing it, in one swap.
func (r *Registry) RemoveRequestor(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	e, ok := snap.requestors[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: requestor %q", ErrNotFound, name)
	}

	if r.store != nil {
		if err := r.store.DeleteRequestor(ctx, e.Name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.requestors, nameKey(e.Name))
	for caID, assocs := range next.caRequestors {
		next.caRequestors[caID] = dropRequestorAssoc(assocs, e.Name)
	}
	r.publish(next)

	r.logger.Info("requestor removed", zap.String("requestor", e.Name))
	return nil
}

func dropRequestorAssoc(assocs []model.CaHasRequestor, name string) []model.CaHasRequestor {
	out := make([]model.CaHasRequestor, 0, len(assocs))
	for _, a := range assocs {
		if nameKey(a.RequestorName) != nameKey(name) {
			out = append(out, a)
		}
	}
	return out
}

// AddUser inserts a new user with a unique name and id.
func (r *Registry) AddUser(ctx context.Context, e *model.UserEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.users[nameKey(e.Name)]; dup {
		return fmt.Errorf("%w: user %q", ErrDuplicate, e.Name)
	}
	for _, existing := range snap.users {
		if existing.ID == e.ID {
			return fmt.Errorf("%w: user id %d", ErrDuplicate, e.ID)
		}
	}

	entry := *e
	if r.store != nil {
		if err := r.store.SaveUser(ctx, &entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.users[nameKey(entry.Name)] = &entry
	r.publish(next)

	r.logger.Info("user added", zap.String("user", entry.Name), zap.Int("id", entry.ID))
	return nil
}

// RemoveUser deletes a user and drops its CA associations.
func (r *Registry) RemoveUser(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	e, ok := snap.users[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: user %q", ErrNotFound, name)
	}

	if r.store != nil {
		if err := r.store.DeleteUser(ctx, e.Name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.users, nameKey(e.Name))
	for caID, assocs := range next.caUsers {
		kept := make([]model.CaHasUser, 0, len(assocs))
		for _, a := range assocs {
			if nameKey(a.UserName) != nameKey(e.Name) {
				kept = append(kept, a)
			}
		}
		next.caUsers[caID] = kept
	}
	r.publish(next)

	r.logger.Info("user removed", zap.String("user", e.Name))
	return nil
}

// AddProfile inserts a new certificate profile.
func (r *Registry) AddProfile(ctx context.Context, e *model.ProfileEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.profiles[nameKey(e.Name)]; dup {
		return fmt.Errorf("%w: profile %q", ErrDuplicate, e.Name)
	}
	if profileIDExists(snap.profiles, e.ID) {
		return fmt.Errorf("%w: profile id %d", ErrDuplicate, e.ID)
	}

	entry := *e
	if r.store != nil {
		if err := r.store.SaveProfile(ctx, &entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.profiles[nameKey(entry.Name)] = &entry
	r.publish(next)

	r.logger.Info("profile added", zap.String("profile", entry.Name), zap.Int("id", entry.ID))
	return nil
}

// RemoveProfile deletes a profile and drops its CA associations.
func (r *Registry) RemoveProfile(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	e, ok := snap.profiles[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: profile %q", ErrNotFound, name)
	}

	if r.store != nil {
		if err := r.store.DeleteProfile(ctx, e.Name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.profiles, nameKey(e.Name))
	for caID, set := range next.caProfiles {
		if _, ok := set[e.ID]; ok {
			cp := make(map[int]struct{}, len(set))
			for id := range set {
				if id != e.ID {
					cp[id] = struct{}{}
				}
			}
			next.caProfiles[caID] = cp
		}
	}
	r.publish(next)

	r.logger.Info("profile removed", zap.String("profile", e.Name))
	return nil
}

// AddPublisher inserts a new publisher.
func (r *Registry) AddPublisher(ctx context.Context, e *model.PublisherEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.publishers[nameKey(e.Name)]; dup {
		return fmt.Errorf("%w: publisher %q", ErrDuplicate, e.Name)
	}
	if publisherIDExists(snap.publishers, e.ID) {
		return fmt.Errorf("%w: publisher id %d", ErrDuplicate, e.ID)
	}

	entry := *e
	if r.store != nil {
		if err := r.store.SavePublisher(ctx, &entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.publishers[nameKey(entry.Name)] = &entry
	r.publish(next)

	r.logger.Info("publisher added", zap.String("publisher", entry.Name), zap.Int("id", entry.ID))
	return nil
}

// RemovePublisher deletes a publisher and drops its CA associations.
func (r *Registry) RemovePublisher(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	e, ok := snap.publishers[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: publisher %q", ErrNotFound, name)
	}

	if r.store != nil {
		if err := r.store.DeletePublisher(ctx, e.Name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.publishers, nameKey(e.Name))
	for caID, set := range next.caPublishers {
		if _, ok := set[e.ID]; ok {
			cp := make(map[int]struct{}, len(set))
			for id := range set {
				if id != e.ID {
					cp[id] = struct{}{}
				}
			}
			next.caPublishers[caID] = cp
		}
	}
	r.publish(next)

	r.logger.Info("publisher removed", zap.String("publisher", e.Name))
	return nil
}

// AddSigner inserts a named signer entry.
func (r *Registry) AddSigner(ctx context.Context, e *model.SignerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.signers[nameKey(e.Name)]; dup {
		return fmt.Errorf("%w: signer %q", ErrDuplicate, e.Name)
	}

	entry := *e
	if r.store != nil {
		if err := r.store.SaveSigner(ctx, &entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.signers[nameKey(entry.Name)] = &entry
	r.publish(next)

	r.logger.Info("signer added", zap.String("signer", entry.Name), zap.String("type", entry.Type))
	return nil
}

// RemoveSigner deletes a signer entry.
func (r *Registry) RemoveSigner(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	e, ok := snap.signers[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: signer %q", ErrNotFound, name)
	}

	if r.store != nil {
		if err := r.store.DeleteSigner(ctx, e.Name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.signers, nameKey(e.Name))
	r.publish(next)

	r.logger.Info("signer removed", zap.String("signer", e.Name))
	return nil
}

// AddCrlSigner inserts a named CRL signer entry.
func (r *Registry) AddCrlSigner(ctx context.Context, e *model.CrlSignerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.crlSigners[nameKey(e.Name)]; dup {
		return fmt.Errorf("%w: CRL signer %q", ErrDuplicate, e.Name)
	}

	entry := *e
	if r.store != nil {
		if err := r.store.SaveCrlSigner(ctx, &entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.crlSigners[nameKey(entry.Name)] = &entry
	r.publish(next)

	r.logger.Info("CRL signer added", zap.String("crl_signer", entry.Name), zap.String("type", entry.Type))
	return nil
}

// RemoveCrlSigner deletes a CRL signer. Removal is rejected while any CA
// still binds it by name; a dangling by-name reference must never appear.
func (r *Registry) RemoveCrlSigner(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	e, ok := snap.crlSigners[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: CRL signer %q", ErrNotFound, name)
	}
	for _, ca := range snap.caByID {
		if nameKey(ca.CrlSignerName) == nameKey(e.Name) {
			return fmt.Errorf("%w: CRL signer %q is bound to CA %q", ErrInUse, e.Name, ca.Name)
		}
	}

	if r.store != nil {
		if err := r.store.DeleteCrlSigner(ctx, e.Name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.crlSigners, nameKey(e.Name))
	r.publish(next)

	r.logger.Info("CRL signer removed", zap.String("crl_signer", e.Name))
	return nil
}

// AddResponder inserts a named responder entry.
func (r *Registry) AddResponder(ctx context.Context, e *model.ResponderEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.responders[nameKey(e.Name)]; dup {
		return fmt.Errorf("%w: responder %q", ErrDuplicate, e.Name)
	}

	entry := *e
	if r.store != nil {
		if err := r.store.SaveResponder(ctx, &entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.responders[nameKey(entry.Name)] = &entry
	r.publish(next)

	r.logger.Info("responder added", zap.String("responder", entry.Name), zap.String("type", entry.Type))
	return nil
}

// RemoveResponder deletes a responder. Rejected while any CA or SCEP entry
// still binds it by name.
func (r *Registry) RemoveResponder(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	e, ok := snap.responders[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: responder %q", ErrNotFound, name)
	}
	for _, ca := range snap.caByID {
		if nameKey(ca.ResponderName) == nameKey(e.Name) {
			return fmt.Errorf("%w: responder %q is bound to CA %q", ErrInUse, e.Name, ca.Name)
		}
	}
	for caID, scep := range snap.sceps {
		if nameKey(scep.ResponderName) == nameKey(e.Name) {
			return fmt.Errorf("%w: responder %q is bound to SCEP entry of CA id %d", ErrInUse, e.Name, caID)
		}
	}

	if r.store != nil {
		if err := r.store.DeleteResponder(ctx, e.Name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.responders, nameKey(e.Name))
	r.publish(next)

	r.logger.Info("responder removed", zap.String("responder", e.Name))
	return nil
}

// AddCmpControl inserts a named CMP control entry.
func (r *Registry) AddCmpControl(ctx context.Context, e *model.CmpControlEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	if _, dup := snap.cmpControls[nameKey(e.Name)]; dup {
		return fmt.Errorf("%w: CMP control %q", ErrDuplicate, e.Name)
	}

	entry := *e
	if r.store != nil {
		if err := r.store.SaveCmpControl(ctx, &entry); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.cmpControls[nameKey(entry.Name)] = &entry
	r.publish(next)

	r.logger.Info("CMP control added", zap.String("cmp_control", entry.Name))
	return nil
}

// RemoveCmpControl deletes a CMP control. Rejected while any CA binds it.
func (r *Registry) RemoveCmpControl(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	e, ok := snap.cmpControls[nameKey(name)]
	if !ok {
		return fmt.Errorf("%w: CMP control %q", ErrNotFound, name)
	}
	for _, ca := range snap.caByID {
		if nameKey(ca.CmpControlName) == nameKey(e.Name) {
			return fmt.Errorf("%w: CMP control %q is bound to CA %q", ErrInUse, e.Name, ca.Name)
		}
	}

	if r.store != nil {
		if err := r.store.DeleteCmpControl(ctx, e.Name); err != nil {
			return err
		}
	}

	next := snap.clone()
	delete(next.cmpControls, nameKey(e.Name))
	r.publish(next)

	r.logger.Info("CMP control removed", zap.String("cmp_control", e.Name))
	return nil
}
