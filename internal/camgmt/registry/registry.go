// Package registry holds the authoritative, validated, atomically swappable
// model of CA configuration: CAs, signer bindings, revocation policy, and the
// many-to-many associations to requestors, users, profiles and publishers.
//
// Every mutation validates its input, writes through the persistence
// collaborator, builds a complete copy of the affected state, and publishes
// it with a single atomic pointer swap. Concurrent readers observe either the
// pre- or post-change state in full, never a mix, and never take a lock.
package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrDuplicate is returned on a name or id collision.
var ErrDuplicate = errors.New("duplicate entity")

// ErrInUse is returned when removing an entity that CAs still reference by
// name (CRL signer, responder, CMP control).
var ErrInUse = errors.New("entity still referenced")

// snapshot is one immutable, self-consistent view of the whole configuration.
// Mutations never modify a published snapshot; they build a fresh one from
// shallow map copies (entries themselves are treated as immutable) and swap
// the registry's pointer.
type snapshot struct {
	cas    map[string]*model.CaEntry // key: lower-cased name
	caByID map[int]*model.CaEntry

	aliases map[string]model.CaAlias // by lower-cased alias name

	signers     map[string]*model.SignerEntry
	crlSigners  map[string]*model.CrlSignerEntry
	responders  map[string]*model.ResponderEntry
	cmpControls map[string]*model.CmpControlEntry

	requestors map[string]*model.RequestorEntry
	users      map[string]*model.UserEntry
	profiles   map[string]*model.ProfileEntry
	publishers map[string]*model.PublisherEntry

	sceps map[int]*model.ScepEntry // by CA id

	caRequestors map[int][]model.CaHasRequestor // by CA id
	caUsers      map[int][]model.CaHasUser
	caProfiles   map[int]map[int]struct{} // CA id -> profile ids
	caPublishers map[int]map[int]struct{} // CA id -> publisher ids
}

func emptySnapshot() *snapshot {
	return &snapshot{
		cas:          map[string]*model.CaEntry{},
		caByID:       map[int]*model.CaEntry{},
		aliases:      map[string]model.CaAlias{},
		signers:      map[string]*model.SignerEntry{},
		crlSigners:   map[string]*model.CrlSignerEntry{},
		responders:   map[string]*model.ResponderEntry{},
		cmpControls:  map[string]*model.CmpControlEntry{},
		requestors:   map[string]*model.RequestorEntry{},
		users:        map[string]*model.UserEntry{},
		profiles:     map[string]*model.ProfileEntry{},
		publishers:   map[string]*model.PublisherEntry{},
		sceps:        map[int]*model.ScepEntry{},
		caRequestors: map[int][]model.CaHasRequestor{},
		caUsers:      map[int][]model.CaHasUser{},
		caProfiles:   map[int]map[int]struct{}{},
		caPublishers: map[int]map[int]struct{}{},
	}
}

// clone copies every table header. Entry values are shared; mutations replace
// entry pointers rather than editing them in place.
func (s *snapshot) clone() *snapshot {
	cp := &snapshot{
		cas:          maps.Clone(s.cas),
		caByID:       maps.Clone(s.caByID),
		aliases:      maps.Clone(s.aliases),
		signers:      maps.Clone(s.signers),
		crlSigners:   maps.Clone(s.crlSigners),
		responders:   maps.Clone(s.responders),
		cmpControls:  maps.Clone(s.cmpControls),
		requestors:   maps.Clone(s.requestors),
		users:        maps.Clone(s.users),
		profiles:     maps.Clone(s.profiles),
		publishers:   maps.Clone(s.publishers),
		sceps:        maps.Clone(s.sceps),
		caRequestors: maps.Clone(s.caRequestors),
		caUsers:      maps.Clone(s.caUsers),
		caProfiles:   maps.Clone(s.caProfiles),
		caPublishers: maps.Clone(s.caPublishers),
	}
	return cp
}

func nameKey(name string) string { return strings.ToLower(name) }

// Registry is the CA configuration authority. Reads are lock-free against
// the current snapshot; mutations are serialized by mu (administrative
// operations are rare and single-writer by discipline).
type Registry struct {
	mu     sync.Mutex
	snap   atomic.Pointer[snapshot]
	store  ConfStore // nil disables write-through persistence
	logger *zap.Logger
}

// New creates an empty registry. store may be nil for a purely in-memory
// registry (tests, dry runs).
func New(store ConfStore, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{store: store, logger: logger}
	r.snap.Store(emptySnapshot())
	return r
}

// LoadConf replaces the registry's state with the configuration read from the
// persistence collaborator. Every entity is validated and referential
// integrity is checked before the new state becomes visible; on any failure
// the prior state stays intact.
func (r *Registry) LoadConf(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	conf, err := r.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load CA configuration: %w", err)
	}
	snap, err := buildSnapshot(conf)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Store(snap)
	r.logger.Info("CA configuration loaded",
		zap.Int("cas", len(snap.caByID)),
		zap.Int("profiles", len(snap.profiles)),
		zap.Int("requestors", len(snap.requestors)),
		zap.Int("publishers", len(snap.publishers)),
	)
	return nil
}

// buildSnapshot validates a full configuration bundle and assembles the
// lookup tables.
func buildSnapshot(conf *model.CaConf) (*snapshot, error) {
	snap := emptySnapshot()

	for _, ca := range conf.Cas {
		if err := ca.Validate(); err != nil {
			return nil, err
		}
		key := nameKey(ca.Name)
		if _, dup := snap.cas[key]; dup {
			return nil, fmt.Errorf("%w: CA name %q", ErrDuplicate, ca.Name)
		}
		if _, dup := snap.caByID[ca.ID]; dup {
			return nil, fmt.Errorf("%w: CA id %d", ErrDuplicate, ca.ID)
		}
		snap.cas[key] = ca
		snap.caByID[ca.ID] = ca
	}
	for _, a := range conf.Aliases {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, ok := snap.caByID[a.CaID]; !ok {
			return nil, fmt.Errorf("%w: alias %q references CA id %d", ErrNotFound, a.Name, a.CaID)
		}
		key := nameKey(a.Name)
		if _, dup := snap.aliases[key]; dup {
			return nil, fmt.Errorf("%w: alias %q", ErrDuplicate, a.Name)
		}
		snap.aliases[key] = a
	}
	for _, e := range conf.Signers {
		if err := insertNamed(snap.signers, e.Name, e, e.Validate()); err != nil {
			return nil, err
		}
	}
	for _, e := range conf.CrlSigners {
		if err := insertNamed(snap.crlSigners, e.Name, e, e.Validate()); err != nil {
			return nil, err
		}
	}
	for _, e := range conf.Responders {
		if err := insertNamed(snap.responders, e.Name, e, e.Validate()); err != nil {
			return nil, err
		}
	}
	for _, e := range conf.CmpControls {
		if err := insertNamed(snap.cmpControls, e.Name, e, e.Validate()); err != nil {
			return nil, err
		}
	}
	for _, e := range conf.Requestors {
		if err := insertNamed(snap.requestors, e.Name, e, e.Validate()); err != nil {
			return nil, err
		}
	}
	for _, e := range conf.Users {
		if err := insertNamed(snap.users, e.Name, e, e.Validate()); err != nil {
			return nil, err
		}
	}
	for _, e := range conf.Profiles {
		if err := insertNamed(snap.profiles, e.Name, e, e.Validate()); err != nil {
			return nil, err
		}
	}
	for _, e := range conf.Publishers {
		if err := insertNamed(snap.publishers, e.Name, e, e.Validate()); err != nil {
			return nil, err
		}
	}
	for _, e := range conf.Sceps {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, ok := snap.caByID[e.CaID]; !ok {
			return nil, fmt.Errorf("%w: SCEP entry references CA id %d", ErrNotFound, e.CaID)
		}
		if _, dup := snap.sceps[e.CaID]; dup {
			return nil, fmt.Errorf("%w: SCEP entry for CA id %d", ErrDuplicate, e.CaID)
		}
		snap.sceps[e.CaID] = e
	}

	for _, a := range conf.CaHasRequestors {
		if _, ok := snap.caByID[a.CaID]; !ok {
			return nil, fmt.Errorf("%w: CA id %d in requestor association", ErrNotFound, a.CaID)
		}
		if _, ok := snap.requestors[nameKey(a.RequestorName)]; !ok {
			return nil, fmt.Errorf("%w: requestor %q", ErrNotFound, a.RequestorName)
		}
		snap.caRequestors[a.CaID] = append(snap.caRequestors[a.CaID], a)
	}
	for _, a := range conf.CaHasUsers {
		if _, ok := snap.caByID[a.CaID]; !ok {
			return nil, fmt.Errorf("%w: CA id %d in user association", ErrNotFound, a.CaID)
		}
		if _, ok := snap.users[nameKey(a.UserName)]; !ok {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, a.UserName)
		}
		snap.caUsers[a.CaID] = append(snap.caUsers[a.CaID], a)
	}
	for _, a := range conf.CaHasProfiles {
		if _, ok := snap.caByID[a.CaID]; !ok {
			return nil, fmt.Errorf("%w: CA id %d in profile association", ErrNotFound, a.CaID)
		}
		if !profileIDExists(snap.profiles, a.ProfileID) {
			return nil, fmt.Errorf("%w: profile id %d", ErrNotFound, a.ProfileID)
		}
		addPair(snap.caProfiles, a.CaID, a.ProfileID)
	}
	for _, a := range conf.CaHasPublishers {
		if _, ok := snap.caByID[a.CaID]; !ok {
			return nil, fmt.Errorf("%w: CA id %d in publisher association", ErrNotFound, a.CaID)
		}
		if !publisherIDExists(snap.publishers, a.PublisherID) {
			return nil, fmt.Errorf("%w: publisher id %d", ErrNotFound, a.PublisherID)
		}
		addPair(snap.caPublishers, a.CaID, a.PublisherID)
	}
	return snap, nil
}

func insertNamed[E any](table map[string]E, name string, e E, validationErr error) error {
	if validationErr != nil {
		return validationErr
	}
	key := nameKey(name)
	if _, dup := table[key]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	table[key] = e
	return nil
}

func profileIDExists(table map[string]*model.ProfileEntry, id int) bool {
	for _, e := range table {
		if e.ID == id {
			return true
		}
	}
	return false
}

func publisherIDExists(table map[string]*model.PublisherEntry, id int) bool {
	for _, e := range table {
		if e.ID == id {
			return true
		}
	}
	return false
}

func addPair(table map[int]map[int]struct{}, caID, id int) {
	set, ok := table[caID]
	if !ok {
		set = map[int]struct{}{}
		table[caID] = set
	}
	set[id] = struct{}{}
}

// publish swaps in a new snapshot. Callers hold r.mu.
func (r *Registry) publish(snap *snapshot) {
	r.snap.Store(snap)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// ── Lookups ──────────────────────────────────────────────────────────────────

// CaByName returns the CA with the given name (case-insensitive).
func (r *Registry) CaByName(name string) (*model.CaEntry, bool) {
	ca, ok := r.current().cas[nameKey(name)]
	if !ok {
		return nil, false
	}
	return ca.Clone(), true
}

// CaByID returns the CA with the given id.
func (r *Registry) CaByID(id int) (*model.CaEntry, bool) {
	ca, ok := r.current().caByID[id]
	if !ok {
		return nil, false
	}
	return ca.Clone(), true
}

// CaNames returns all CA names, sorted.
func (r *Registry) CaNames() []string {
	snap := r.current()
	names := make([]string, 0, len(snap.cas))
	for _, ca := range snap.cas {
		names = append(names, ca.Name)
	}
	sort.Strings(names)
	return names
}

// Cas returns all CA entries sorted by name.
func (r *Registry) Cas() []*model.CaEntry {
	snap := r.current()
	out := make([]*model.CaEntry, 0, len(snap.cas))
	for _, ca := range snap.cas {
		out = append(out, ca.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActiveCas returns the CAs eligible to act as issuers: active, not revoked,
// and carrying a certificate.
func (r *Registry) ActiveCas() []*model.CaEntry {
	var out []*model.CaEntry
	for _, ca := range r.Cas() {
		if ca.Status == model.CaStatusActive && !ca.Revoked() && ca.CertPEM != "" {
			out = append(out, ca)
		}
	}
	return out
}

// CaIDForAlias resolves an alias name to its CA id.
func (r *Registry) CaIDForAlias(alias string) (int, bool) {
	a, ok := r.current().aliases[nameKey(alias)]
	if !ok {
		return 0, false
	}
	return a.CaID, true
}

// AliasesForCa returns all alias names bound to a CA id, sorted.
func (r *Registry) AliasesForCa(caID int) []string {
	snap := r.current()
	var out []string
	for _, a := range snap.aliases {
		if a.CaID == caID {
			out = append(out, a.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Requestor returns a requestor by name.
func (r *Registry) Requestor(name string) (*model.RequestorEntry, bool) {
	e, ok := r.current().requestors[nameKey(name)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// RequestorNames returns all requestor names, sorted.
func (r *Registry) RequestorNames() []string {
	return sortedNames(r.current().requestors, func(e *model.RequestorEntry) string { return e.Name })
}

// User returns a user by name.
func (r *Registry) User(name string) (*model.UserEntry, bool) {
	e, ok := r.current().users[nameKey(name)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// UserNames returns all user names, sorted.
func (r *Registry) UserNames() []string {
	return sortedNames(r.current().users, func(e *model.UserEntry) string { return e.Name })
}

// Profile returns a certificate profile by name.
func (r *Registry) Profile(name string) (*model.ProfileEntry, bool) {
	e, ok := r.current().profiles[nameKey(name)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// ProfileNames returns all profile names, sorted.
func (r *Registry) ProfileNames() []string {
	return sortedNames(r.current().profiles, func(e *model.ProfileEntry) string { return e.Name })
}

// Publisher returns a publisher by name.
func (r *Registry) Publisher(name string) (*model.PublisherEntry, bool) {
	e, ok := r.current().publishers[nameKey(name)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// PublisherNames returns all publisher names, sorted.
func (r *Registry) PublisherNames() []string {
	return sortedNames(r.current().publishers, func(e *model.PublisherEntry) string { return e.Name })
}

// Signer returns a signer entry by name.
func (r *Registry) Signer(name string) (*model.SignerEntry, bool) {
	e, ok := r.current().signers[nameKey(name)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// CrlSigner returns a CRL signer entry by name.
func (r *Registry) CrlSigner(name string) (*model.CrlSignerEntry, bool) {
	e, ok := r.current().crlSigners[nameKey(name)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// Responder returns a responder entry by name.
func (r *Registry) Responder(name string) (*model.ResponderEntry, bool) {
	e, ok := r.current().responders[nameKey(name)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// CmpControl returns a CMP control entry by name.
func (r *Registry) CmpControl(name string) (*model.CmpControlEntry, bool) {
	e, ok := r.current().cmpControls[nameKey(name)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// Scep returns the SCEP entry bound to a CA id.
func (r *Registry) Scep(caID int) (*model.ScepEntry, bool) {
	e, ok := r.current().sceps[caID]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// RequestorsForCa returns the requestor associations of a CA.
func (r *Registry) RequestorsForCa(caID int) []model.CaHasRequestor {
	assocs := r.current().caRequestors[caID]
	out := make([]model.CaHasRequestor, len(assocs))
	copy(out, assocs)
	return out
}

// UsersForCa returns the user associations of a CA.
func (r *Registry) UsersForCa(caID int) []model.CaHasUser {
	assocs := r.current().caUsers[caID]
	out := make([]model.CaHasUser, len(assocs))
	copy(out, assocs)
	return out
}

// ProfileIDsForCa returns the ids of profiles associated with a CA, sorted.
func (r *Registry) ProfileIDsForCa(caID int) []int {
	return sortedIDs(r.current().caProfiles[caID])
}

// PublisherIDsForCa returns the ids of publishers associated with a CA, sorted.
func (r *Registry) PublisherIDsForCa(caID int) []int {
	return sortedIDs(r.current().caPublishers[caID])
}

// Conf assembles the current snapshot into a full configuration bundle, deep
// copied and deterministically ordered. The bulk exporter consumes this.
func (r *Registry) Conf() *model.CaConf {
	snap := r.current()
	conf := &model.CaConf{}

	conf.Cas = r.Cas()
	for _, key := range sortedKeys(snap.aliases) {
		conf.Aliases = append(conf.Aliases, snap.aliases[key])
	}
	for _, key := range sortedKeys(snap.signers) {
		cp := *snap.signers[key]
		conf.Signers = append(conf.Signers, &cp)
	}
	for _, key := range sortedKeys(snap.crlSigners) {
		cp := *snap.crlSigners[key]
		conf.CrlSigners = append(conf.CrlSigners, &cp)
	}
	for _, key := range sortedKeys(snap.responders) {
		cp := *snap.responders[key]
		conf.Responders = append(conf.Responders, &cp)
	}
	for _, key := range sortedKeys(snap.cmpControls) {
		cp := *snap.cmpControls[key]
		conf.CmpControls = append(conf.CmpControls, &cp)
	}
	for _, key := range sortedKeys(snap.requestors) {
		cp := *snap.requestors[key]
		conf.Requestors = append(conf.Requestors, &cp)
	}
	for _, key := range sortedKeys(snap.users) {
		cp := *snap.users[key]
		conf.Users = append(conf.Users, &cp)
	}
	for _, key := range sortedKeys(snap.profiles) {
		cp := *snap.profiles[key]
		conf.Profiles = append(conf.Profiles, &cp)
	}
	for _, key := range sortedKeys(snap.publishers) {
		cp := *snap.publishers[key]
		conf.Publishers = append(conf.Publishers, &cp)
	}

	caIDs := make([]int, 0, len(snap.caByID))
	for id := range snap.caByID {
		caIDs = append(caIDs, id)
	}
	sort.Ints(caIDs)
	for _, id := range caIDs {
		if e, ok := snap.sceps[id]; ok {
			conf.Sceps = append(conf.Sceps, e.Clone())
		}
	}
	for _, id := range caIDs {
		conf.CaHasRequestors = append(conf.CaHasRequestors, snap.caRequestors[id]...)
		conf.CaHasUsers = append(conf.CaHasUsers, snap.caUsers[id]...)
		for _, pid := range sortedIDs(snap.caProfiles[id]) {
			conf.CaHasProfiles = append(conf.CaHasProfiles, model.CaHasProfile{CaID: id, ProfileID: pid})
		}
		for _, pid := range sortedIDs(snap.caPublishers[id]) {
			conf.CaHasPublishers = append(conf.CaHasPublishers, model.CaHasPublisher{CaID: id, PublisherID: pid})
		}
	}
	return conf
}

func sortedKeys[E any](table map[string]E) []string {
	out := make([]string, 0, len(table))
	for key := range table {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func sortedIDs(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func sortedNames[E any](table map[string]E, name func(E) string) []string {
	out := make([]string, 0, len(table))
	for _, e := range table {
		out = append(out, name(e))
	}
	sort.Strings(out)
	return out
}
