package registry_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
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

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New(nil, nil)
}

func mustAddCa(t *testing.T, r *registry.Registry, ca *model.CaEntry) {
	t.Helper()
	if err := r.AddCa(context.Background(), ca); err != nil {
		t.Fatalf("AddCa(%q): %v", ca.Name, err)
	}
}

func strptr(s string) *string { return &s }

// ── CA lifecycle ─────────────────────────────────────────────────────────────

func TestAddCa_duplicateNameCaseInsensitive(t *testing.T) {
	r := newRegistry(t)
	mustAddCa(t, r, caEntry(1, "MyCA"))

	err := r.AddCa(context.Background(), caEntry(2, "myca"))
	if !errors.Is(err, registry.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAddCa_duplicateID(t *testing.T) {
	r := newRegistry(t)
	mustAddCa(t, r, caEntry(1, "ca-a"))

	err := r.AddCa(context.Background(), caEntry(1, "ca-b"))
	if !errors.Is(err, registry.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAddCa_unknownCrlSignerRef(t *testing.T) {
	r := newRegistry(t)
	ca := caEntry(1, "myca1")
	ca.CrlSignerName = "no-such-signer"

	err := r.AddCa(context.Background(), ca)
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCaByName_returnsClone(t *testing.T) {
	r := newRegistry(t)
	mustAddCa(t, r, caEntry(1, "myca1"))

	got, ok := r.CaByName("MYCA1")
	if !ok {
		t.Fatal("case-insensitive lookup failed")
	}
	got.SignerType = "mutated"

	again, _ := r.CaByName("myca1")
	if again.SignerType != "pkcs12" {
		t.Error("lookup handed out shared state")
	}
}

func TestChangeCa_partialUpdateKeepsOmittedFields(t *testing.T) {
	r := newRegistry(t)
	ca := caEntry(1, "myca1")
	ca.ExtraControl = "keep-me"
	mustAddCa(t, r, ca)

	sn := 20
	desc, err := r.ChangeCa(context.Background(), "myca1", registry.CaChanges{SerialNoLen: &sn})
	if err != nil {
		t.Fatalf("ChangeCa: %v", err)
	}
	if !strings.Contains(desc, "sn_len") {
		t.Errorf("description %q does not name the changed field", desc)
	}

	got, _ := r.CaByName("myca1")
	if got.SerialNoLen != 20 {
		t.Errorf("sn_len = %d, want 20", got.SerialNoLen)
	}
	if got.ExtraControl != "keep-me" {
		t.Errorf("omitted field changed: extra_control = %q", got.ExtraControl)
	}
}

func TestChangeCa_clearSentinel(t *testing.T) {
	r := newRegistry(t)
	if err := r.AddCrlSigner(context.Background(), &model.CrlSignerEntry{
		Name: "crlsigner1", Type: "pkcs12", Conf: "c",
	}); err != nil {
		t.Fatalf("AddCrlSigner: %v", err)
	}
	ca := caEntry(1, "myca1")
	ca.CrlSignerName = "crlsigner1"
	ca.Uris.CrlURIs = []string{"http://crl.example.com/1.crl"}
	mustAddCa(t, r, ca)

	_, err := r.ChangeCa(context.Background(), "myca1", registry.CaChanges{
		CrlSignerName: strptr("null"),
		CrlURIs:       []string{"NULL"},
	})
	if err != nil {
		t.Fatalf("ChangeCa: %v", err)
	}

	got, _ := r.CaByName("myca1")
	if got.CrlSignerName != "" {
		t.Errorf("crl_signer = %q, want cleared", got.CrlSignerName)
	}
	if len(got.Uris.CrlURIs) != 0 {
		t.Errorf("crl_uris = %v, want cleared", got.Uris.CrlURIs)
	}
}

func TestChangeCa_clearSentinelMustBeSoleURI(t *testing.T) {
	r := newRegistry(t)
	mustAddCa(t, r, caEntry(1, "myca1"))

	_, err := r.ChangeCa(context.Background(), "myca1", registry.CaChanges{
		CrlURIs: []string{"NULL", "http://crl.example.com/1.crl"},
	})
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// An invalid duplicate-subject value must be rejected on its own merits, no
// matter what the duplicate-key parameter holds in the same request.
func TestChangeCa_invalidDuplicateSubjectRejected(t *testing.T) {
	r := newRegistry(t)
	mustAddCa(t, r, caEntry(1, "myca1"))

	for _, dupKey := range []string{"permitted", "bogus"} {
		_, err := r.ChangeCa(context.Background(), "myca1", registry.CaChanges{
			DuplicateKey:     strptr(dupKey),
			DuplicateSubject: strptr("bogus-subject-mode"),
		})
		if err == nil {
			t.Fatalf("duplicate_key=%q: invalid duplicate_subject accepted", dupKey)
		}
		if !strings.Contains(err.Error(), "duplicate_subject") {
			t.Errorf("duplicate_key=%q: error %q does not mention duplicate_subject", dupKey, err)
		}
	}
}

func TestChangeCa_reportsEveryInvalidEnum(t *testing.T) {
	r := newRegistry(t)
	mustAddCa(t, r, caEntry(1, "myca1"))

	_, err := r.ChangeCa(context.Background(), "myca1", registry.CaChanges{
		Status:       strptr("retired"),
		ValidityMode: strptr("loose"),
		Permissions:  []string{"enroll", "frobnicate"},
	})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, field := range []string{"status", "validity_mode", "permissions"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not report %s: %v", field, err)
		}
	}

	// Nothing may have been applied.
	got, _ := r.CaByName("myca1")
	if got.Status != model.CaStatusActive || got.ValidityMode != model.ValidityStrict {
		t.Error("state changed despite rejected request")
	}
}

func TestChangeCa_noChanges(t *testing.T) {
	r := newRegistry(t)
	mustAddCa(t, r, caEntry(1, "myca1"))

	desc, err := r.ChangeCa(context.Background(), "myca1", registry.CaChanges{})
	if err != nil {
		t.Fatalf("ChangeCa: %v", err)
	}
	if !strings.Contains(desc, "unchanged") {
		t.Errorf("description = %q, want unchanged notice", desc)
	}
}

func TestRemoveCa_cascades(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	mustAddCa(t, r, caEntry(1, "myca1"))

	if err := r.AddCaAlias(ctx, model.CaAlias{Name: "prod", CaID: 1}); err != nil {
		t.Fatalf("AddCaAlias: %v", err)
	}
	if err := r.AddRequestor(ctx, &model.RequestorEntry{ID: 1, Name: "req1"}); err != nil {
		t.Fatalf("AddRequestor: %v", err)
	}
	if err := r.AddRequestorToCa(ctx, "myca1", model.CaHasRequestor{
		RequestorName: "req1", Permissions: model.PermEnroll,
	}); err != nil {
		t.Fatalf("AddRequestorToCa: %v", err)
	}
	if err := r.AddProfile(ctx, &model.ProfileEntry{ID: 1, Name: "tls", Type: "xml"}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	if err := r.AddProfileToCa(ctx, "myca1", "tls"); err != nil {
		t.Fatalf("AddProfileToCa: %v", err)
	}
	if err := r.AddScep(ctx, &model.ScepEntry{CaID: 1, Active: true}); err != nil {
		t.Fatalf("AddScep: %v", err)
	}

	if err := r.RemoveCa(ctx, "myca1"); err != nil {
		t.Fatalf("RemoveCa: %v", err)
	}

	if _, ok := r.CaByName("myca1"); ok {
		t.Error("CA still present")
	}
	if _, ok := r.CaIDForAlias("prod"); ok {
		t.Error("alias survived CA removal")
	}
	if _, ok := r.Scep(1); ok {
		t.Error("SCEP entry survived CA removal")
	}
	if len(r.RequestorsForCa(1)) != 0 {
		t.Error("requestor association survived CA removal")
	}
	if len(r.ProfileIDsForCa(1)) != 0 {
		t.Error("profile association survived CA removal")
	}
	// The entities themselves stay.
	if _, ok := r.Requestor("req1"); !ok {
		t.Error("requestor entity removed by CA cascade")
	}
	if _, ok := r.Profile("tls"); !ok {
		t.Error("profile entity removed by CA cascade")
	}
}

func TestRevokeUnrevokeCa(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	mustAddCa(t, r, caEntry(1, "myca1"))

	rev := model.RevocationInfo{Reason: model.ReasonKeyCompromise}
	if err := r.RevokeCa(ctx, "myca1", rev); err != nil {
		t.Fatalf("RevokeCa: %v", err)
	}
	got, _ := r.CaByName("myca1")
	if !got.Revoked() {
		t.Fatal("CA not marked revoked")
	}
	if got.Revocation.RevokedAt.IsZero() || got.Revocation.InvalidityAt.IsZero() {
		t.Error("revocation timestamps not defaulted")
	}

	if err := r.RevokeCa(ctx, "myca1", rev); !errors.Is(err, registry.ErrDuplicate) {
		t.Errorf("double revoke: expected ErrDuplicate, got %v", err)
	}

	if err := r.UnrevokeCa(ctx, "myca1"); err != nil {
		t.Fatalf("UnrevokeCa: %v", err)
	}
	got, _ = r.CaByName("myca1")
	if got.Revoked() {
		t.Error("CA still revoked after unrevoke")
	}
	if err := r.UnrevokeCa(ctx, "myca1"); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("unrevoke of non-revoked CA: expected ErrNotFound, got %v", err)
	}
}

func TestActiveCas_filters(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	active := caEntry(1, "active-ca")
	active.CertPEM = "-----BEGIN CERTIFICATE-----\nstub\n-----END CERTIFICATE-----\n"
	mustAddCa(t, r, active)

	inactive := caEntry(2, "inactive-ca")
	inactive.Status = model.CaStatusInactive
	inactive.CertPEM = active.CertPEM
	mustAddCa(t, r, inactive)

	noCert := caEntry(3, "certless-ca")
	mustAddCa(t, r, noCert)

	revoked := caEntry(4, "revoked-ca")
	revoked.CertPEM = active.CertPEM
	mustAddCa(t, r, revoked)
	if err := r.RevokeCa(ctx, "revoked-ca", model.RevocationInfo{}); err != nil {
		t.Fatalf("RevokeCa: %v", err)
	}

	got := r.ActiveCas()
	if len(got) != 1 || got[0].Name != "active-ca" {
		names := make([]string, len(got))
		for i, ca := range got {
			names[i] = ca.Name
		}
		t.Errorf("ActiveCas = %v, want [active-ca]", names)
	}
}

// ── Entities and associations ────────────────────────────────────────────────

func TestRemoveCrlSigner_inUse(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	if err := r.AddCrlSigner(ctx, &model.CrlSignerEntry{Name: "crlsigner1", Type: "pkcs12", Conf: "c"}); err != nil {
		t.Fatalf("AddCrlSigner: %v", err)
	}
	ca := caEntry(1, "myca1")
	ca.CrlSignerName = "CRLSIGNER1" // binding is case-insensitive
	mustAddCa(t, r, ca)

	if err := r.RemoveCrlSigner(ctx, "crlsigner1"); !errors.Is(err, registry.ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}

	if err := r.RemoveCa(ctx, "myca1"); err != nil {
		t.Fatalf("RemoveCa: %v", err)
	}
	if err := r.RemoveCrlSigner(ctx, "crlsigner1"); err != nil {
		t.Fatalf("RemoveCrlSigner after unbinding: %v", err)
	}
}

func TestRemoveResponder_boundToScep(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	if err := r.AddResponder(ctx, &model.ResponderEntry{Name: "resp1", Type: "pkcs12", Conf: "c"}); err != nil {
		t.Fatalf("AddResponder: %v", err)
	}
	mustAddCa(t, r, caEntry(1, "myca1"))
	if err := r.AddScep(ctx, &model.ScepEntry{CaID: 1, ResponderName: "resp1"}); err != nil {
		t.Fatalf("AddScep: %v", err)
	}

	if err := r.RemoveResponder(ctx, "resp1"); !errors.Is(err, registry.ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
	if err := r.RemoveScep(ctx, 1); err != nil {
		t.Fatalf("RemoveScep: %v", err)
	}
	if err := r.RemoveResponder(ctx, "resp1"); err != nil {
		t.Fatalf("RemoveResponder after unbinding: %v", err)
	}
}

func TestAddRequestorToCa_duplicatePair(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	mustAddCa(t, r, caEntry(1, "myca1"))
	if err := r.AddRequestor(ctx, &model.RequestorEntry{ID: 1, Name: "req1"}); err != nil {
		t.Fatalf("AddRequestor: %v", err)
	}

	a := model.CaHasRequestor{RequestorName: "req1", RA: true, Permissions: model.PermEnroll}
	if err := r.AddRequestorToCa(ctx, "myca1", a); err != nil {
		t.Fatalf("AddRequestorToCa: %v", err)
	}
	if err := r.AddRequestorToCa(ctx, "myca1", a); !errors.Is(err, registry.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	assocs := r.RequestorsForCa(1)
	if len(assocs) != 1 || !assocs[0].RA || assocs[0].Permissions != model.PermEnroll {
		t.Errorf("associations = %+v", assocs)
	}
}

func TestRemoveRequestor_dropsAssociations(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	mustAddCa(t, r, caEntry(1, "myca1"))
	if err := r.AddRequestor(ctx, &model.RequestorEntry{ID: 1, Name: "req1"}); err != nil {
		t.Fatalf("AddRequestor: %v", err)
	}
	if err := r.AddRequestorToCa(ctx, "myca1", model.CaHasRequestor{RequestorName: "req1"}); err != nil {
		t.Fatalf("AddRequestorToCa: %v", err)
	}

	if err := r.RemoveRequestor(ctx, "req1"); err != nil {
		t.Fatalf("RemoveRequestor: %v", err)
	}
	if len(r.RequestorsForCa(1)) != 0 {
		t.Error("association survived requestor removal")
	}
}

func TestProfileAssociations(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	mustAddCa(t, r, caEntry(1, "myca1"))
	if err := r.AddProfile(ctx, &model.ProfileEntry{ID: 7, Name: "tls-server", Type: "xml"}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}

	if err := r.AddProfileToCa(ctx, "myca1", "tls-server"); err != nil {
		t.Fatalf("AddProfileToCa: %v", err)
	}
	if err := r.AddProfileToCa(ctx, "myca1", "tls-server"); !errors.Is(err, registry.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if got := r.ProfileIDsForCa(1); len(got) != 1 || got[0] != 7 {
		t.Errorf("ProfileIDsForCa = %v, want [7]", got)
	}

	if err := r.RemoveProfileFromCa(ctx, "myca1", "tls-server"); err != nil {
		t.Fatalf("RemoveProfileFromCa: %v", err)
	}
	if got := r.ProfileIDsForCa(1); len(got) != 0 {
		t.Errorf("ProfileIDsForCa = %v, want empty", got)
	}
}

func TestAliasResolution(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	mustAddCa(t, r, caEntry(1, "myca1"))
	mustAddCa(t, r, caEntry(2, "myca2"))

	if err := r.AddCaAlias(ctx, model.CaAlias{Name: "Prod", CaID: 1}); err != nil {
		t.Fatalf("AddCaAlias: %v", err)
	}
	if err := r.AddCaAlias(ctx, model.CaAlias{Name: "staging", CaID: 2}); err != nil {
		t.Fatalf("AddCaAlias: %v", err)
	}
	if err := r.AddCaAlias(ctx, model.CaAlias{Name: "PROD", CaID: 2}); !errors.Is(err, registry.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for case-colliding alias, got %v", err)
	}

	if id, ok := r.CaIDForAlias("prod"); !ok || id != 1 {
		t.Errorf("CaIDForAlias(prod) = (%d, %v), want (1, true)", id, ok)
	}
	if got := r.AliasesForCa(1); len(got) != 1 || got[0] != "Prod" {
		t.Errorf("AliasesForCa(1) = %v, original casing must be preserved", got)
	}
}

// ── Snapshot isolation ───────────────────────────────────────────────────────

// A reader holding the result of an enumeration must not observe a concurrent
// mutation: lookups operate on immutable snapshots.
func TestSnapshotIsolation(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		mustAddCa(t, r, caEntry(i, fmt.Sprintf("ca-%d", i)))
	}

	before := r.CaNames()
	if err := r.RemoveCa(ctx, "ca-3"); err != nil {
		t.Fatalf("RemoveCa: %v", err)
	}
	if len(before) != 5 {
		t.Errorf("enumeration mutated in place: %v", before)
	}
	if len(r.CaNames()) != 4 {
		t.Errorf("CaNames after removal = %v", r.CaNames())
	}
}

// ── Conf export ──────────────────────────────────────────────────────────────

func TestConf_deterministicAndComplete(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	mustAddCa(t, r, caEntry(2, "myca2"))
	mustAddCa(t, r, caEntry(1, "myca1"))
	if err := r.AddProfile(ctx, &model.ProfileEntry{ID: 1, Name: "tls", Type: "xml"}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	if err := r.AddProfileToCa(ctx, "myca1", "tls"); err != nil {
		t.Fatalf("AddProfileToCa: %v", err)
	}
	if err := r.AddCaAlias(ctx, model.CaAlias{Name: "prod", CaID: 1}); err != nil {
		t.Fatalf("AddCaAlias: %v", err)
	}

	conf := r.Conf()
	if len(conf.Cas) != 2 || conf.Cas[0].Name != "myca1" || conf.Cas[1].Name != "myca2" {
		t.Errorf("Cas not sorted by name: %v", []string{conf.Cas[0].Name, conf.Cas[1].Name})
	}
	if len(conf.Aliases) != 1 || len(conf.Profiles) != 1 {
		t.Errorf("aliases/profiles missing: %+v", conf)
	}
	if len(conf.CaHasProfiles) != 1 || conf.CaHasProfiles[0].CaID != 1 || conf.CaHasProfiles[0].ProfileID != 1 {
		t.Errorf("CaHasProfiles = %+v", conf.CaHasProfiles)
	}

	// Mutating the export must not leak into the registry.
	conf.Cas[0].SignerType = "mutated"
	got, _ := r.CaByName("myca1")
	if got.SignerType != "pkcs12" {
		t.Error("Conf handed out shared CA state")
	}
}

// ── Persistence write-through ────────────────────────────────────────────────

// failingStore rejects a configurable save; everything else succeeds.
type failingStore struct {
	nopStore
	failSaveCa bool
}

var errStorage = errors.New("storage down")

func (s *failingStore) SaveCa(context.Context, *model.CaEntry) error {
	if s.failSaveCa {
		return errStorage
	}
	return nil
}

func TestMutation_abortsOnStoreFailure(t *testing.T) {
	store := &failingStore{failSaveCa: true}
	r := registry.New(store, nil)

	err := r.AddCa(context.Background(), caEntry(1, "myca1"))
	if !errors.Is(err, errStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if _, ok := r.CaByName("myca1"); ok {
		t.Error("state published despite storage failure")
	}

	store.failSaveCa = false
	if err := r.AddCa(context.Background(), caEntry(1, "myca1")); err != nil {
		t.Fatalf("AddCa after recovery: %v", err)
	}
}

func TestLoadConf_seedsFromStore(t *testing.T) {
	store := &nopStore{
		conf: &model.CaConf{
			Cas:        []*model.CaEntry{caEntry(1, "myca1")},
			Aliases:    []model.CaAlias{{Name: "prod", CaID: 1}},
			Profiles:   []*model.ProfileEntry{{ID: 1, Name: "tls", Type: "xml"}},
			Requestors: []*model.RequestorEntry{{ID: 1, Name: "req1"}},
			CaHasProfiles: []model.CaHasProfile{
				{CaID: 1, ProfileID: 1},
			},
		},
	}
	r := registry.New(store, nil)
	if err := r.LoadConf(context.Background()); err != nil {
		t.Fatalf("LoadConf: %v", err)
	}

	if _, ok := r.CaByName("myca1"); !ok {
		t.Error("CA not loaded")
	}
	if id, ok := r.CaIDForAlias("prod"); !ok || id != 1 {
		t.Error("alias not loaded")
	}
	if got := r.ProfileIDsForCa(1); len(got) != 1 || got[0] != 1 {
		t.Errorf("ProfileIDsForCa = %v", got)
	}
}

func TestLoadConf_rejectsDanglingAssociation(t *testing.T) {
	store := &nopStore{
		conf: &model.CaConf{
			Cas:           []*model.CaEntry{caEntry(1, "myca1")},
			CaHasProfiles: []model.CaHasProfile{{CaID: 1, ProfileID: 99}},
		},
	}
	r := registry.New(store, nil)
	if err := r.LoadConf(context.Background()); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(r.CaNames()) != 0 {
		t.Error("partial configuration became visible")
	}
}

// nopStore is an in-memory ConfStore that accepts everything. conf seeds
// LoadAll; the zero value loads an empty configuration.
type nopStore struct {
	conf *model.CaConf
}

func (s *nopStore) LoadAll(context.Context) (*model.CaConf, error) {
	if s.conf == nil {
		return &model.CaConf{}, nil
	}
	return s.conf, nil
}

func (s *nopStore) SaveCa(context.Context, *model.CaEntry) error             { return nil }
func (s *nopStore) DeleteCa(context.Context, int) error                      { return nil }
func (s *nopStore) SaveCaAlias(context.Context, model.CaAlias) error         { return nil }
func (s *nopStore) DeleteCaAlias(context.Context, string) error              { return nil }
func (s *nopStore) SaveSigner(context.Context, *model.SignerEntry) error     { return nil }
func (s *nopStore) DeleteSigner(context.Context, string) error               { return nil }
func (s *nopStore) SaveCrlSigner(context.Context, *model.CrlSignerEntry) error {
	return nil
}
func (s *nopStore) DeleteCrlSigner(context.Context, string) error              { return nil }
func (s *nopStore) SaveResponder(context.Context, *model.ResponderEntry) error { return nil }
func (s *nopStore) DeleteResponder(context.Context, string) error              { return nil }
func (s *nopStore) SaveCmpControl(context.Context, *model.CmpControlEntry) error {
	return nil
}
func (s *nopStore) DeleteCmpControl(context.Context, string) error             { return nil }
func (s *nopStore) SaveRequestor(context.Context, *model.RequestorEntry) error { return nil }
func (s *nopStore) DeleteRequestor(context.Context, string) error              { return nil }
func (s *nopStore) SaveUser(context.Context, *model.UserEntry) error           { return nil }
func (s *nopStore) DeleteUser(context.Context, string) error                   { return nil }
func (s *nopStore) SaveProfile(context.Context, *model.ProfileEntry) error     { return nil }
func (s *nopStore) DeleteProfile(context.Context, string) error                { return nil }
func (s *nopStore) SavePublisher(context.Context, *model.PublisherEntry) error { return nil }
func (s *nopStore) DeletePublisher(context.Context, string) error              { return nil }
func (s *nopStore) SaveScep(context.Context, *model.ScepEntry) error           { return nil }
func (s *nopStore) DeleteScep(context.Context, int) error                      { return nil }
func (s *nopStore) SaveCaRequestor(context.Context, model.CaHasRequestor) error {
	return nil
}
func (s *nopStore) DeleteCaRequestor(context.Context, int, string) error     { return nil }
func (s *nopStore) SaveCaUser(context.Context, model.CaHasUser) error        { return nil }
func (s *nopStore) DeleteCaUser(context.Context, int, string) error          { return nil }
func (s *nopStore) SaveCaProfile(context.Context, model.CaHasProfile) error  { return nil }
func (s *nopStore) DeleteCaProfile(context.Context, int, int) error          { return nil }
func (s *nopStore) SaveCaPublisher(context.Context, model.CaHasPublisher) error {
	return nil
}
func (s *nopStore) DeleteCaPublisher(context.Context, int, int) error { return nil }
