package port

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// document is the top-level structure of caconf.json.
type document struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Conf      *model.CaConf `json:"conf"`
}

// Exporter writes a configuration bundle into an archive directory. The zero
// value is usable; set Stop to allow another goroutine to abort a long run
// between rows.
type Exporter struct {
	// Stop aborts the run when set to true. May be nil.
	Stop *atomic.Bool
	// InlineThreshold overrides DefaultInlineThreshold when positive.
	InlineThreshold int
	Logger          *zap.Logger
}

func (e *Exporter) threshold() int {
	if e.InlineThreshold > 0 {
		return e.InlineThreshold
	}
	return DefaultInlineThreshold
}

func (e *Exporter) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Exporter) stopped(ctx context.Context) bool {
	if e.Stop != nil && e.Stop.Load() {
		return true
	}
	return ctx.Err() != nil
}

// Export writes conf into dir as caconf.json plus externalized blob files.
// On cancellation it returns the progress accumulated so far together with
// ErrCanceled; no partial main document is left behind in that case.
func (e *Exporter) Export(ctx context.Context, conf *model.CaConf, dir string) (*Progress, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	progress := newProgress()
	out := &model.CaConf{}
	thr := e.threshold()

	for _, ca := range conf.Cas {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := ca.Clone()
		var err error
		if cp.CertPEM, err = externalize(dir, fmt.Sprintf("ca-%d.crt.pem", cp.ID), cp.CertPEM, thr); err != nil {
			return progress, err
		}
		if cp.SignerConf, err = externalize(dir, fmt.Sprintf("ca-%d.signer.conf", cp.ID), cp.SignerConf, thr); err != nil {
			return progress, err
		}
		out.Cas = append(out.Cas, cp)
		progress.add("cas")
	}

	for _, a := range conf.Aliases {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		out.Aliases = append(out.Aliases, a)
		progress.add("ca_aliases")
	}

	for _, s := range conf.Signers {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := *s
		var err error
		if cp.Conf, err = externalize(dir, "signer-"+cp.Name+".conf", cp.Conf, thr); err != nil {
			return progress, err
		}
		if cp.CertPEM, err = externalize(dir, "signer-"+cp.Name+".crt.pem", cp.CertPEM, thr); err != nil {
			return progress, err
		}
		out.Signers = append(out.Signers, &cp)
		progress.add("signers")
	}

	for _, s := range conf.CrlSigners {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := *s
		var err error
		if cp.Conf, err = externalize(dir, "crlsigner-"+cp.Name+".conf", cp.Conf, thr); err != nil {
			return progress, err
		}
		if cp.CertPEM, err = externalize(dir, "crlsigner-"+cp.Name+".crt.pem", cp.CertPEM, thr); err != nil {
			return progress, err
		}
		out.CrlSigners = append(out.CrlSigners, &cp)
		progress.add("crl_signers")
	}

	for _, s := range conf.Responders {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := *s
		var err error
		if cp.Conf, err = externalize(dir, "responder-"+cp.Name+".conf", cp.Conf, thr); err != nil {
			return progress, err
		}
		if cp.CertPEM, err = externalize(dir, "responder-"+cp.Name+".crt.pem", cp.CertPEM, thr); err != nil {
			return progress, err
		}
		out.Responders = append(out.Responders, &cp)
		progress.add("responders")
	}

	for _, c := range conf.CmpControls {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := *c
		out.CmpControls = append(out.CmpControls, &cp)
		progress.add("cmp_controls")
	}

	for _, r := range conf.Requestors {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := *r
		var err error
		if cp.CertPEM, err = externalize(dir, "requestor-"+cp.Name+".crt.pem", cp.CertPEM, thr); err != nil {
			return progress, err
		}
		out.Requestors = append(out.Requestors, &cp)
		progress.add("requestors")
	}

	for _, u := range conf.Users {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := *u
		out.Users = append(out.Users, &cp)
		progress.add("users")
	}

	for _, p := range conf.Profiles {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := *p
		var err error
		if cp.Conf, err = externalize(dir, "profile-"+cp.Name+".conf", cp.Conf, thr); err != nil {
			return progress, err
		}
		out.Profiles = append(out.Profiles, &cp)
		progress.add("profiles")
	}

	for _, p := range conf.Publishers {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		cp := *p
		var err error
		if cp.Conf, err = externalize(dir, "publisher-"+cp.Name+".conf", cp.Conf, thr); err != nil {
			return progress, err
		}
		out.Publishers = append(out.Publishers, &cp)
		progress.add("publishers")
	}

	for _, sc := range conf.Sceps {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		out.Sceps = append(out.Sceps, sc.Clone())
		progress.add("sceps")
	}

	for _, a := range conf.CaHasRequestors {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		out.CaHasRequestors = append(out.CaHasRequestors, a)
		progress.add("ca_has_requestors")
	}
	for _, a := range conf.CaHasUsers {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		out.CaHasUsers = append(out.CaHasUsers, a)
		progress.add("ca_has_users")
	}
	for _, a := range conf.CaHasProfiles {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		out.CaHasProfiles = append(out.CaHasProfiles, a)
		progress.add("ca_has_profiles")
	}
	for _, a := range conf.CaHasPublishers {
		if e.stopped(ctx) {
			return progress, ErrCanceled
		}
		out.CaHasPublishers = append(out.CaHasPublishers, a)
		progress.add("ca_has_publishers")
	}

	doc := document{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Conf:      out,
	}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return progress, fmt.Errorf("marshal archive: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ArchiveFile), data, 0o600); err != nil {
		return progress, fmt.Errorf("write %s: %w", ArchiveFile, err)
	}

	e.logger().Info("configuration exported",
		zap.String("archive_id", doc.ID),
		zap.String("dir", dir),
		zap.Int("rows", progress.Total()),
	)
	return progress, nil
}
