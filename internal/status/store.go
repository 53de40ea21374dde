package status

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// storeView is one immutable issuer-store state: the issuer list, the id set
// derived from it, and the per-issuer CRL metadata. The three always change
// together so readers can never observe an id without its issuer or vice
// versa.
type storeView struct {
	issuers  []*IssuerEntry
	ids      map[int]struct{}
	crlInfos map[int]*CrlInfo
}

// IssuerStore indexes the active issuers for status queries. Reads are
// lock-free against the current view; SetIssuers/AddIssuer/SetCrlInfos build
// a replacement view and swap it in whole. Issuer counts are small (tens at
// most), so fingerprint resolution is a linear scan over the issuer list —
// byte comparison of a precomputed hash is negligible next to the crypto in
// the rest of the request path, and a byte-keyed map would buy nothing here.
type IssuerStore struct {
	mu   sync.Mutex // serializes writers
	view atomic.Pointer[storeView]
}

// NewIssuerStore returns an empty store.
func NewIssuerStore() *IssuerStore {
	s := &IssuerStore{}
	s.view.Store(&storeView{ids: map[int]struct{}{}, crlInfos: map[int]*CrlInfo{}})
	return s
}

// SetIssuers replaces the whole issuer list. If any two entries share a CA
// id the batch is rejected and the prior state stays fully intact — an id
// collision here signals corrupted configuration, not a runtime condition.
// CRL metadata for ids no longer present is dropped in the same swap.
func (s *IssuerStore) SetIssuers(issuers []*IssuerEntry) error {
	ids := make(map[int]struct{}, len(issuers))
	for _, issuer := range issuers {
		if _, dup := ids[issuer.ID]; dup {
			return fmt.Errorf("issuer with the same id %d duplicated", issuer.ID)
		}
		ids[issuer.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.view.Load()
	crlInfos := make(map[int]*CrlInfo, len(old.crlInfos))
	for id, info := range old.crlInfos {
		if _, ok := ids[id]; ok {
			crlInfos[id] = info
		}
	}
	s.view.Store(&storeView{
		issuers:  slices.Clone(issuers),
		ids:      ids,
		crlInfos: crlInfos,
	})
	return nil
}

// AddIssuer appends a single issuer, for the case of a CA becoming active
// without a full reload.
func (s *IssuerStore) AddIssuer(issuer *IssuerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.view.Load()
	if _, dup := old.ids[issuer.ID]; dup {
		return fmt.Errorf("issuer with the same id %d duplicated", issuer.ID)
	}

	ids := make(map[int]struct{}, len(old.ids)+1)
	for id := range old.ids {
		ids[id] = struct{}{}
	}
	ids[issuer.ID] = struct{}{}

	next := &storeView{
		issuers:  append(slices.Clone(old.issuers), issuer),
		ids:      ids,
		crlInfos: old.crlInfos,
	}
	s.view.Store(next)
	return nil
}

// Size returns the number of issuers.
func (s *IssuerStore) Size() int {
	return len(s.view.Load().ids)
}

// HasID reports whether a CA id is currently active. Callers use this to
// reject requests cheaply before a full resolve.
func (s *IssuerStore) HasID(id int) bool {
	_, ok := s.view.Load().ids[id]
	return ok
}

// IDs returns the sorted set of active CA ids.
func (s *IssuerStore) IDs() []int {
	view := s.view.Load()
	out := make([]int, 0, len(view.ids))
	for id := range view.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// ByFingerprint returns the first issuer whose precomputed fingerprint
// matches fp.
func (s *IssuerStore) ByFingerprint(fp []byte) (*IssuerEntry, bool) {
	for _, issuer := range s.view.Load().issuers {
		if issuer.MatchFingerprint(fp) {
			return issuer, true
		}
	}
	return nil, false
}

// ByID returns the issuer with the given CA id.
func (s *IssuerStore) ByID(id int) (*IssuerEntry, bool) {
	for _, issuer := range s.view.Load().issuers {
		if issuer.ID == id {
			return issuer, true
		}
	}
	return nil, false
}

// SetCrlInfos replaces the cached per-issuer CRL metadata.
func (s *IssuerStore) SetCrlInfos(infos map[int]*CrlInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.view.Load()
	crlInfos := make(map[int]*CrlInfo, len(infos))
	for id, info := range infos {
		crlInfos[id] = info
	}
	s.view.Store(&storeView{
		issuers:  old.issuers,
		ids:      old.ids,
		crlInfos: crlInfos,
	})
}

// SetCrlInfo updates the CRL metadata of one issuer, as CRLs are processed
// on a per-issuer cadence.
func (s *IssuerStore) SetCrlInfo(id int, info *CrlInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.view.Load()
	crlInfos := make(map[int]*CrlInfo, len(old.crlInfos)+1)
	for k, v := range old.crlInfos {
		crlInfos[k] = v
	}
	crlInfos[id] = info
	s.view.Store(&storeView{
		issuers:  old.issuers,
		ids:      old.ids,
		crlInfos: crlInfos,
	})
}

// CrlInfo returns the cached CRL metadata for an issuer id.
func (s *IssuerStore) CrlInfo(id int) (*CrlInfo, bool) {
	info, ok := s.view.Load().crlInfos[id]
	return info, ok
}

// CrlIssuerIDs returns the sorted ids that currently carry CRL metadata.
func (s *IssuerStore) CrlIssuerIDs() []int {
	view := s.view.Load()
	out := make([]int, 0, len(view.crlInfos))
	for id := range view.crlInfos {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
