package port_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"github.com/canopy-pki/canopy/internal/camgmt/port"
	"github.com/canopy-pki/canopy/internal/camgmt/registry"
)

func caEntry(id int, name string) *model.CaEntry {
	return &model.CaEntry{
		ID:                   id,
		Name:                 name,
		Status:               model.CaStatusActive,
		SerialNoLen:          16,
		MaxValidity:          365 * 24 * time.Hour,
		SignerType:           "pkcs12",
		SignerConf:           "keystore=...",
		Permissions:          model.PermAll,
		DuplicateKeyMode:     model.DupPermitted,
		DuplicateSubjectMode: model.DupForbidden,
		ValidityMode:         model.ValidityStrict,
		NumCrls:              30,
		NextCrlNo:            1,
	}
}

// seedRegistry builds a registry carrying one of everything.
func seedRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(nil, nil)
	ctx := context.Background()

	if err := r.AddCrlSigner(ctx, &model.CrlSignerEntry{Name: "crlsigner1", Type: "pkcs12", Conf: "c"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddResponder(ctx, &model.ResponderEntry{Name: "resp1", Type: "pkcs12", Conf: "c"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddProfile(ctx, &model.ProfileEntry{ID: 1, Name: "tls-server", Type: "xml", Conf: "<profile/>"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddPublisher(ctx, &model.PublisherEntry{ID: 1, Name: "ocsp-pub", Type: "ocsp", Conf: "db=..."}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddRequestor(ctx, &model.RequestorEntry{ID: 1, Name: "ra1"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddUser(ctx, &model.UserEntry{ID: 1, Name: "admin1", Active: true}); err != nil {
		t.Fatal(err)
	}

	ca := caEntry(1, "myca1")
	ca.CrlSignerName = "crlsigner1"
	if err := r.AddCa(ctx, ca); err != nil {
		t.Fatal(err)
	}
	if err := r.AddCaAlias(ctx, model.CaAlias{Name: "prod", CaID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddScep(ctx, &model.ScepEntry{CaID: 1, Active: true, ResponderName: "resp1"}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddRequestorToCa(ctx, "myca1", model.CaHasRequestor{
		RequestorName: "ra1", RA: true, Permissions: model.PermAll,
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddUserToCa(ctx, "myca1", model.CaHasUser{
		UserName: "admin1", Permissions: model.PermEnroll,
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddProfileToCa(ctx, "myca1", "tls-server"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddPublisherToCa(ctx, "myca1", "ocsp-pub"); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestExportImport_roundtrip(t *testing.T) {
	src := seedRegistry(t)
	dir := t.TempDir()

	exp := port.Exporter{}
	progress, err := exp.Export(context.Background(), src.Conf(), dir)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	for table, want := range map[string]int{
		"cas": 1, "ca_aliases": 1, "crl_signers": 1, "responders": 1,
		"profiles": 1, "publishers": 1, "requestors": 1, "users": 1,
		"sceps": 1, "ca_has_requestors": 1, "ca_has_users": 1,
		"ca_has_profiles": 1, "ca_has_publishers": 1,
	} {
		if progress.Counts[table] != want {
			t.Errorf("export %s = %d, want %d", table, progress.Counts[table], want)
		}
	}

	dst := registry.New(nil, nil)
	imp := port.Importer{Strict: true}
	progress, err = imp.Import(context.Background(), dir, dst)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if progress.Total() != 13 {
		t.Errorf("import rows = %d, want 13", progress.Total())
	}

	ca, ok := dst.CaByName("myca1")
	if !ok {
		t.Fatal("CA missing after import")
	}
	if ca.CrlSignerName != "crlsigner1" || ca.MaxValidity != 365*24*time.Hour {
		t.Errorf("imported CA = %+v", ca)
	}
	if id, ok := dst.CaIDForAlias("prod"); !ok || id != 1 {
		t.Error("alias missing after import")
	}
	if scep, ok := dst.Scep(1); !ok || scep.ResponderName != "resp1" {
		t.Error("SCEP entry missing after import")
	}
	if got := dst.RequestorsForCa(1); len(got) != 1 || !got[0].RA {
		t.Errorf("requestor associations = %+v", got)
	}
	if got := dst.ProfileIDsForCa(1); len(got) != 1 || got[0] != 1 {
		t.Errorf("profile associations = %v", got)
	}
}

func TestExport_externalizesLargeValues(t *testing.T) {
	r := registry.New(nil, nil)
	bigConf := strings.Repeat("x", 4096)
	if err := r.AddProfile(context.Background(), &model.ProfileEntry{
		ID: 1, Name: "big", Type: "xml", Conf: bigConf,
	}); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	exp := port.Exporter{InlineThreshold: 1024}
	if _, err := exp.Export(context.Background(), r.Conf(), dir); err != nil {
		t.Fatalf("Export: %v", err)
	}

	// The main document must carry a reference, not the blob.
	raw, err := os.ReadFile(filepath.Join(dir, port.ArchiveFile))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if strings.Contains(string(raw), bigConf) {
		t.Error("large value inlined despite threshold")
	}
	var doc struct {
		Conf model.CaConf `json:"conf"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse archive: %v", err)
	}
	if !strings.HasPrefix(doc.Conf.Profiles[0].Conf, "@") {
		t.Errorf("profile conf = %q, want file reference", doc.Conf.Profiles[0].Conf)
	}

	// ReadArchive resolves the reference back to the original value.
	conf, err := port.ReadArchive(dir)
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if conf.Profiles[0].Conf != bigConf {
		t.Error("externalized value not resolved on read")
	}
}

func TestExport_canceled(t *testing.T) {
	src := seedRegistry(t)
	dir := t.TempDir()

	var stop atomic.Bool
	stop.Store(true)
	exp := port.Exporter{Stop: &stop}

	progress, err := exp.Export(context.Background(), src.Conf(), dir)
	if !errors.Is(err, port.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if progress == nil {
		t.Fatal("progress missing on cancellation")
	}
	// The main document must not exist after an aborted run.
	if _, err := os.Stat(filepath.Join(dir, port.ArchiveFile)); !errors.Is(err, os.ErrNotExist) {
		t.Error("aborted export left a main document behind")
	}
}

func TestImport_canceled(t *testing.T) {
	src := seedRegistry(t)
	dir := t.TempDir()
	if _, err := (&port.Exporter{}).Export(context.Background(), src.Conf(), dir); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var stop atomic.Bool
	stop.Store(true)
	imp := port.Importer{Stop: &stop}
	progress, err := imp.Import(context.Background(), dir, registry.New(nil, nil))
	if !errors.Is(err, port.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if progress.Total() != 0 {
		t.Errorf("rows applied before first stop check: %d", progress.Total())
	}
}

func TestImport_strictVsBestEffort(t *testing.T) {
	src := seedRegistry(t)
	dir := t.TempDir()
	if _, err := (&port.Exporter{}).Export(context.Background(), src.Conf(), dir); err != nil {
		t.Fatalf("Export: %v", err)
	}

	// Target already holds the profile, so that row collides.
	newTarget := func() *registry.Registry {
		r := registry.New(nil, nil)
		if err := r.AddProfile(context.Background(), &model.ProfileEntry{
			ID: 1, Name: "tls-server", Type: "xml",
		}); err != nil {
			t.Fatal(err)
		}
		return r
	}

	strict := port.Importer{Strict: true}
	if _, err := strict.Import(context.Background(), dir, newTarget()); !errors.Is(err, registry.ErrDuplicate) {
		t.Fatalf("strict import: expected ErrDuplicate, got %v", err)
	}

	lenient := port.Importer{}
	target := newTarget()
	progress, err := lenient.Import(context.Background(), dir, target)
	if err != nil {
		t.Fatalf("best-effort import: %v", err)
	}
	if progress.Counts["profiles"] != 0 {
		t.Errorf("colliding profile row counted: %d", progress.Counts["profiles"])
	}
	if progress.Counts["cas"] != 1 {
		t.Errorf("cas = %d, want 1", progress.Counts["cas"])
	}
	// The skipped row must not block dependent rows.
	if got := target.ProfileIDsForCa(1); len(got) != 1 {
		t.Errorf("profile association missing after skipped profile row: %v", got)
	}
}

func TestReadArchive_missingDocument(t *testing.T) {
	if _, err := port.ReadArchive(t.TempDir()); err == nil {
		t.Fatal("empty directory accepted as archive")
	}
}
