package registry

import (
	"context"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
)

// ConfStore is the persistence collaborator. The registry writes every
// accepted mutation through it before publishing the new snapshot; a store
// failure aborts the mutation with no visible state change. Implementations
// report failures as storage errors which the registry propagates without
// interpretation. *repository.PostgresStore satisfies this interface.
type ConfStore interface {
	// LoadAll returns the complete configuration used to seed the registry.
	LoadAll(ctx context.Context) (*model.CaConf, error)

	SaveCa(ctx context.Context, ca *model.CaEntry) error
	// DeleteCa removes the CA row and every dependent row (aliases,
	// associations, SCEP binding) in one transaction.
	DeleteCa(ctx context.Context, caID int) error

	SaveCaAlias(ctx context.Context, alias model.CaAlias) error
	DeleteCaAlias(ctx context.Context, name string) error

	SaveSigner(ctx context.Context, e *model.SignerEntry) error
	DeleteSigner(ctx context.Context, name string) error
	SaveCrlSigner(ctx context.Context, e *model.CrlSignerEntry) error
	DeleteCrlSigner(ctx context.Context, name string) error
	SaveResponder(ctx context.Context, e *model.ResponderEntry) error
	DeleteResponder(ctx context.Context, name string) error
	SaveCmpControl(ctx context.Context, e *model.CmpControlEntry) error
	DeleteCmpControl(ctx context.Context, name string) error

	SaveRequestor(ctx context.Context, e *model.RequestorEntry) error
	DeleteRequestor(ctx context.Context, name string) error
	SaveUser(ctx context.Context, e *model.UserEntry) error
	DeleteUser(ctx context.Context, name string) error
	SaveProfile(ctx context.Context, e *model.ProfileEntry) error
	DeleteProfile(ctx context.Context, name string) error
	SavePublisher(ctx context.Context, e *model.PublisherEntry) error
	DeletePublisher(ctx context.Context, name string) error

	SaveScep(ctx context.Context, e *model.ScepEntry) error
	DeleteScep(ctx context.Context, caID int) error

	SaveCaRequestor(ctx context.Context, a model.CaHasRequestor) error
	DeleteCaRequestor(ctx context.Context, caID int, requestorName string) error
	SaveCaUser(ctx context.Context, a model.CaHasUser) error
	DeleteCaUser(ctx context.Context, caID int, userName string) error
	SaveCaProfile(ctx context.Context, a model.CaHasProfile) error
	DeleteCaProfile(ctx context.Context, caID, profileID int) error
	SaveCaPublisher(ctx context.Context, a model.CaHasPublisher) error
	DeleteCaPublisher(ctx context.Context, caID, publisherID int) error
}
