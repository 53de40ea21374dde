package registry

import (
	"context"
	"fmt"
	"slices"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"go.uber.org/zap"
)

// AddRequestorToCa associates a requestor with a CA under a permission mask,
// RA flag and optional profile whitelist. Both sides must exist and the pair
// must be new.
func (r *Registry) AddRequestorToCa(ctx context.Context, caName string, a model.CaHasRequestor) error {
	if a.Permissions&^model.PermAll != 0 {
		return &model.ValidationError{
			Kind: "ca_has_requestor", Name: a.RequestorName, Field: "permissions",
			Reason: fmt.Sprintf("mask 0x%x contains undefined bits", uint32(a.Permissions)),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(caName)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, caName)
	}
	req, ok := snap.requestors[nameKey(a.RequestorName)]
	if !ok {
		return fmt.Errorf("%w: requestor %q", ErrNotFound, a.RequestorName)
	}
	for _, existing := range snap.caRequestors[ca.ID] {
		if nameKey(existing.RequestorName) == nameKey(req.Name) {
			return fmt.Errorf("%w: requestor %q is already associated with CA %q", ErrDuplicate, req.Name, ca.Name)
		}
	}

	a.CaID = ca.ID
	a.RequestorName = req.Name
	a.Profiles = slices.Clone(a.Profiles)
	if r.store != nil {
		if err := r.store.SaveCaRequestor(ctx, a); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.caRequestors[ca.ID] = append(slices.Clone(snap.caRequestors[ca.ID]), a)
	r.publish(next)

	r.logger.Info("requestor associated with CA",
		zap.String("ca", ca.Name),
		zap.String("requestor", req.Name),
		zap.Bool("ra", a.RA),
	)
	return nil
}

// RemoveRequestorFromCa drops a CA-requestor association.
func (r *Registry) RemoveRequestorFromCa(ctx context.Context, caName, requestorName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(caName)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, caName)
	}
	assocs := snap.caRequestors[ca.ID]
	idx := slices.IndexFunc(assocs, func(a model.CaHasRequestor) bool {
		return nameKey(a.RequestorName) == nameKey(requestorName)
	})
	if idx < 0 {
		return fmt.Errorf("%w: requestor %q is not associated with CA %q", ErrNotFound, requestorName, ca.Name)
	}

	if r.store != nil {
		if err := r.store.DeleteCaRequestor(ctx, ca.ID, assocs[idx].RequestorName); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.caRequestors[ca.ID] = slices.Delete(slices.Clone(assocs), idx, idx+1)
	r.publish(next)

	r.logger.Info("requestor dissociated from CA",
		zap.String("ca", ca.Name),
		zap.String("requestor", requestorName),
	)
	return nil
}

// AddUserToCa associates a user with a CA under a permission mask and an
// optional profile whitelist.
func (r *Registry) AddUserToCa(ctx context.Context, caName string, a model.CaHasUser) error {
	if a.Permissions&^model.PermAll != 0 {
		return &model.ValidationError{
			Kind: "ca_has_user", Name: a.UserName, Field: "permissions",
			Reason: fmt.Sprintf("mask 0x%x contains undefined bits", uint32(a.Permissions)),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(caName)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, caName)
	}
	user, ok := snap.users[nameKey(a.UserName)]
	if !ok {
		return fmt.Errorf("%w: user %q", ErrNotFound, a.UserName)
	}
	for _, existing := range snap.caUsers[ca.ID] {
		if nameKey(existing.UserName) == nameKey(user.Name) {
			return fmt.Errorf("%w: user %q is already associated with CA %q", ErrDuplicate, user.Name, ca.Name)
		}
	}

	a.CaID = ca.ID
	a.UserName = user.Name
	a.Profiles = slices.Clone(a.Profiles)
	if r.store != nil {
		if err := r.store.SaveCaUser(ctx, a); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.caUsers[ca.ID] = append(slices.Clone(snap.caUsers[ca.ID]), a)
	r.publish(next)

	r.logger.Info("user associated with CA", zap.String("ca", ca.Name), zap.String("user", user.Name))
	return nil
}

// RemoveUserFromCa drops a CA-user association.
func (r *Registry) RemoveUserFromCa(ctx context.Context, caName, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(caName)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, caName)
	}
	assocs := snap.caUsers[ca.ID]
	idx := slices.IndexFunc(assocs, func(a model.CaHasUser) bool {
		return nameKey(a.UserName) == nameKey(userName)
	})
	if idx < 0 {
		return fmt.Errorf("%w: user %q is not associated with CA %q", ErrNotFound, userName, ca.Name)
	}

	if r.store != nil {
		if err := r.store.DeleteCaUser(ctx, ca.ID, assocs[idx].UserName); err != nil {
			return err
		}
	}

	next := snap.clone()
	next.caUsers[ca.ID] = slices.Delete(slices.Clone(assocs), idx, idx+1)
	r.publish(next)

	r.logger.Info("user dissociated from CA", zap.String("ca", ca.Name), zap.String("user", userName))
	return nil
}

// AddProfileToCa associates a certificate profile (by name) with a CA.
func (r *Registry) AddProfileToCa(ctx context.Context, caName, profileName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(caName)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, caName)
	}
	profile, ok := snap.profiles[nameKey(profileName)]
	if !ok {
		return fmt.Errorf("%w: profile %q", ErrNotFound, profileName)
	}
	if _, dup := snap.caProfiles[ca.ID][profile.ID]; dup {
		return fmt.Errorf("%w: profile %q is already associated with CA %q", ErrDuplicate, profile.Name, ca.Name)
	}

	if r.store != nil {
		if err := r.store.SaveCaProfile(ctx, model.CaHasProfile{CaID: ca.ID, ProfileID: profile.ID}); err != nil {
			return err
		}
	}

	next := snap.clone()
	set := make(map[int]struct{}, len(snap.caProfiles[ca.ID])+1)
	for id := range snap.caProfiles[ca.ID] {
		set[id] = struct{}{}
	}
	set[profile.ID] = struct{}{}
	next.caProfiles[ca.ID] = set
	r.publish(next)

	r.logger.Info("profile associated with CA", zap.String("ca", ca.Name), zap.String("profile", profile.Name))
	return nil
}

// RemoveProfileFromCa drops a CA-profile association.
func (r *Registry) RemoveProfileFromCa(ctx context.Context, caName, profileName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(caName)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, caName)
	}
	profile, ok := snap.profiles[nameKey(profileName)]
	if !ok {
		return fmt.Errorf("%w: profile %q", ErrNotFound, profileName)
	}
	if _, ok := snap.caProfiles[ca.ID][profile.ID]; !ok {
		return fmt.Errorf("%w: profile %q is not associated with CA %q", ErrNotFound, profile.Name, ca.Name)
	}

	if r.store != nil {
		if err := r.store.DeleteCaProfile(ctx, ca.ID, profile.ID); err != nil {
			return err
		}
	}

	next := snap.clone()
	set := make(map[int]struct{}, len(snap.caProfiles[ca.ID]))
	for id := range snap.caProfiles[ca.ID] {
		if id != profile.ID {
			set[id] = struct{}{}
		}
	}
	next.caProfiles[ca.ID] = set
	r.publish(next)

	r.logger.Info("profile dissociated from CA", zap.String("ca", ca.Name), zap.String("profile", profile.Name))
	return nil
}

// AddPublisherToCa associates a publisher (by name) with a CA.
func (r *Registry) AddPublisherToCa(ctx context.Context, caName, publisherName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(caName)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, caName)
	}
	pub, ok := snap.publishers[nameKey(publisherName)]
	if !ok {
		return fmt.Errorf("%w: publisher %q", ErrNotFound, publisherName)
	}
	if _, dup := snap.caPublishers[ca.ID][pub.ID]; dup {
		return fmt.Errorf("%w: publisher %q is already associated with CA %q", ErrDuplicate, pub.Name, ca.Name)
	}

	if r.store != nil {
		if err := r.store.SaveCaPublisher(ctx, model.CaHasPublisher{CaID: ca.ID, PublisherID: pub.ID}); err != nil {
			return err
		}
	}

	next := snap.clone()
	set := make(map[int]struct{}, len(snap.caPublishers[ca.ID])+1)
	for id := range snap.caPublishers[ca.ID] {
		set[id] = struct{}{}
	}
	set[pub.ID] = struct{}{}
	next.caPublishers[ca.ID] = set
	r.publish(next)

	r.logger.Info("publisher associated with CA", zap.String("ca", ca.Name), zap.String("publisher", pub.Name))
	return nil
}

// RemovePublisherFromCa drops a CA-publisher association.
func (r *Registry) RemovePublisherFromCa(ctx context.Context, caName, publisherName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.current()
	ca, ok := snap.cas[nameKey(caName)]
	if !ok {
		return fmt.Errorf("%w: CA %q", ErrNotFound, caName)
	}
	pub, ok := snap.publishers[nameKey(publisherName)]
	if !ok {
		return fmt.Errorf("%w: publisher %q", ErrNotFound, publisherName)
	}
	if _, ok := snap.caPublishers[ca.ID][pub.ID]; !ok {
		return fmt.Errorf("%w: publisher %q is not associated with CA %q", ErrNotFound, pub.Name, ca.Name)
	}

	if r.store != nil {
		if err := r.store.DeleteCaPublisher(ctx, ca.ID, pub.ID); err != nil {
			return err
		}
	}

	next := snap.clone()
	set := make(map[int]struct{}, len(snap.caPublishers[ca.ID]))
	for id := range snap.caPublishers[ca.ID] {
		if id != pub.ID {
			set[id] = struct{}{}
		}
	}
	next.caPublishers[ca.ID] = set
	r.publish(next)

	r.logger.Info("publisher dissociated from CA", zap.String("ca", ca.Name), zap.String("publisher", pub.Name))
	return nil
}
