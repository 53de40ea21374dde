package port

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"go.uber.org/zap"
)

// Target receives the imported configuration entry by entry, so every row
// passes the same validation and persistence path as an interactive change.
// *registry.Registry satisfies this interface.
type Target interface {
	AddCa(ctx context.Context, ca *model.CaEntry) error
	AddCaAlias(ctx context.Context, alias model.CaAlias) error
	AddSigner(ctx context.Context, e *model.SignerEntry) error
	AddCrlSigner(ctx context.Context, e *model.CrlSignerEntry) error
	AddResponder(ctx context.Context, e *model.ResponderEntry) error
	AddCmpControl(ctx context.Context, e *model.CmpControlEntry) error
	AddRequestor(ctx context.Context, e *model.RequestorEntry) error
	AddUser(ctx context.Context, e *model.UserEntry) error
	AddProfile(ctx context.Context, e *model.ProfileEntry) error
	AddPublisher(ctx context.Context, e *model.PublisherEntry) error
	AddScep(ctx context.Context, e *model.ScepEntry) error
	AddRequestorToCa(ctx context.Context, caName string, a model.CaHasRequestor) error
	AddUserToCa(ctx context.Context, caName string, a model.CaHasUser) error
	AddProfileToCa(ctx context.Context, caName, profileName string) error
	AddPublisherToCa(ctx context.Context, caName, publisherName string) error
}

// Importer reads an archive directory and feeds it into a Target. Entries go
// in dependency order: standalone entities first, then CAs, then aliases,
// SCEP bindings and associations.
type Importer struct {
	// Stop aborts the run when set to true. May be nil.
	Stop *atomic.Bool
	// Strict aborts on the first rejected row. When false, rejected rows are
	// logged and skipped, and the run continues.
	Strict bool
	Logger *zap.Logger
}

func (im *Importer) logger() *zap.Logger {
	if im.Logger == nil {
		return zap.NewNop()
	}
	return im.Logger
}

func (im *Importer) stopped(ctx context.Context) bool {
	if im.Stop != nil && im.Stop.Load() {
		return true
	}
	return ctx.Err() != nil
}

// row applies one entry. In strict mode the first failure aborts; otherwise
// it is logged and the run continues. Successful rows count toward progress.
func (im *Importer) row(table, name string, progress *Progress, apply func() error) error {
	if err := apply(); err != nil {
		if im.Strict {
			return fmt.Errorf("%s %q: %w", table, name, err)
		}
		im.logger().Warn("skipping rejected row",
			zap.String("table", table),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil
	}
	progress.add(table)
	return nil
}

// ReadArchive loads and resolves the main document of an archive directory
// without applying it. Externalized values are read back inline.
func ReadArchive(dir string) (*model.CaConf, error) {
	data, err := os.ReadFile(filepath.Join(dir, ArchiveFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ArchiveFile, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ArchiveFile, err)
	}
	conf := doc.Conf
	if conf == nil {
		return nil, fmt.Errorf("parse %s: missing conf section", ArchiveFile)
	}

	for _, ca := range conf.Cas {
		if ca.CertPEM, err = resolve(dir, ca.CertPEM); err != nil {
			return nil, err
		}
		if ca.SignerConf, err = resolve(dir, ca.SignerConf); err != nil {
			return nil, err
		}
	}
	for _, s := range conf.Signers {
		if s.Conf, err = resolve(dir, s.Conf); err != nil {
			return nil, err
		}
		if s.CertPEM, err = resolve(dir, s.CertPEM); err != nil {
			return nil, err
		}
	}
	for _, s := range conf.CrlSigners {
		if s.Conf, err = resolve(dir, s.Conf); err != nil {
			return nil, err
		}
		if s.CertPEM, err = resolve(dir, s.CertPEM); err != nil {
			return nil, err
		}
	}
	for _, s := range conf.Responders {
		if s.Conf, err = resolve(dir, s.Conf); err != nil {
			return nil, err
		}
		if s.CertPEM, err = resolve(dir, s.CertPEM); err != nil {
			return nil, err
		}
	}
	for _, r := range conf.Requestors {
		if r.CertPEM, err = resolve(dir, r.CertPEM); err != nil {
			return nil, err
		}
	}
	for _, p := range conf.Profiles {
		if p.Conf, err = resolve(dir, p.Conf); err != nil {
			return nil, err
		}
	}
	for _, p := range conf.Publishers {
		if p.Conf, err = resolve(dir, p.Conf); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

// Import reads the archive in dir and applies it to target. On cancellation
// it returns the progress so far with ErrCanceled; already-applied rows stay
// applied.
func (im *Importer) Import(ctx context.Context, dir string, target Target) (*Progress, error) {
	conf, err := ReadArchive(dir)
	if err != nil {
		return nil, err
	}
	progress := newProgress()

	caNames := make(map[int]string, len(conf.Cas))
	for _, ca := range conf.Cas {
		caNames[ca.ID] = ca.Name
	}
	profileNames := make(map[int]string, len(conf.Profiles))
	for _, p := range conf.Profiles {
		profileNames[p.ID] = p.Name
	}
	publisherNames := make(map[int]string, len(conf.Publishers))
	for _, p := range conf.Publishers {
		publisherNames[p.ID] = p.Name
	}

	for _, e := range conf.Signers {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("signers", e.Name, progress, func() error { return target.AddSigner(ctx, e) }); err != nil {
			return progress, err
		}
	}
	for _, e := range conf.CrlSigners {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("crl_signers", e.Name, progress, func() error { return target.AddCrlSigner(ctx, e) }); err != nil {
			return progress, err
		}
	}
	for _, e := range conf.Responders {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("responders", e.Name, progress, func() error { return target.AddResponder(ctx, e) }); err != nil {
			return progress, err
		}
	}
	for _, e := range conf.CmpControls {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("cmp_controls", e.Name, progress, func() error { return target.AddCmpControl(ctx, e) }); err != nil {
			return progress, err
		}
	}
	for _, e := range conf.Requestors {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("requestors", e.Name, progress, func() error { return target.AddRequestor(ctx, e) }); err != nil {
			return progress, err
		}
	}
	for _, e := range conf.Users {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("users", e.Name, progress, func() error { return target.AddUser(ctx, e) }); err != nil {
			return progress, err
		}
	}
	for _, e := range conf.Profiles {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("profiles", e.Name, progress, func() error { return target.AddProfile(ctx, e) }); err != nil {
			return progress, err
		}
	}
	for _, e := range conf.Publishers {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("publishers", e.Name, progress, func() error { return target.AddPublisher(ctx, e) }); err != nil {
			return progress, err
		}
	}

	for _, ca := range conf.Cas {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("cas", ca.Name, progress, func() error { return target.AddCa(ctx, ca) }); err != nil {
			return progress, err
		}
	}
	for _, a := range conf.Aliases {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("ca_aliases", a.Name, progress, func() error { return target.AddCaAlias(ctx, a) }); err != nil {
			return progress, err
		}
	}
	for _, e := range conf.Sceps {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		if err := im.row("sceps", caNames[e.CaID], progress, func() error { return target.AddScep(ctx, e) }); err != nil {
			return progress, err
		}
	}

	for _, a := range conf.CaHasRequestors {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		name := caNames[a.CaID] + "/" + a.RequestorName
		if err := im.row("ca_has_requestors", name, progress, func() error {
			return target.AddRequestorToCa(ctx, caNames[a.CaID], a)
		}); err != nil {
			return progress, err
		}
	}
	for _, a := range conf.CaHasUsers {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		name := caNames[a.CaID] + "/" + a.UserName
		if err := im.row("ca_has_users", name, progress, func() error {
			return target.AddUserToCa(ctx, caNames[a.CaID], a)
		}); err != nil {
			return progress, err
		}
	}
	for _, a := range conf.CaHasProfiles {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		caName, profileName := caNames[a.CaID], profileNames[a.ProfileID]
		name := caName + "/" + profileName
		if err := im.row("ca_has_profiles", name, progress, func() error {
			return target.AddProfileToCa(ctx, caName, profileName)
		}); err != nil {
			return progress, err
		}
	}
	for _, a := range conf.CaHasPublishers {
		if im.stopped(ctx) {
			return progress, ErrCanceled
		}
		caName, publisherName := caNames[a.CaID], publisherNames[a.PublisherID]
		name := caName + "/" + publisherName
		if err := im.row("ca_has_publishers", name, progress, func() error {
			return target.AddPublisherToCa(ctx, caName, publisherName)
		}); err != nil {
			return progress, err
		}
	}

	im.logger().Info("configuration imported",
		zap.String("dir", dir),
		zap.Int("rows", progress.Total()),
		zap.Bool("strict", im.Strict),
	)
	return progress, nil
}
