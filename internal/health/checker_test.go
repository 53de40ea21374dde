package health_test

import (
	"testing"
	"time"

	"github.com/canopy-pki/canopy/internal/health"
	"github.com/canopy-pki/canopy/internal/status"
	"go.uber.org/zap"
)

// fakeView serves a fixed issuer set with per-issuer CRL metadata.
type fakeView struct {
	ids   []int
	infos map[int]*status.CrlInfo
}

func (f *fakeView) IDs() []int { return f.ids }

func (f *fakeView) CrlInfo(id int) (*status.CrlInfo, bool) {
	info, ok := f.infos[id]
	return info, ok
}

func TestCheckAll_countsStaleIssuers(t *testing.T) {
	now := time.Now()
	view := &fakeView{
		ids: []int{1, 2, 3},
		infos: map[int]*status.CrlInfo{
			1: {Number: 5, NextUpdate: now.Add(24 * time.Hour)}, // fresh
			2: {Number: 5, NextUpdate: now.Add(-time.Minute)},   // expired
			// 3 has no metadata at all
		},
	}
	m := health.New(view, health.Config{}, zap.NewNop())

	var recorded int
	m.SetMetricsRecord(func(stale int) { recorded = stale })

	if got := m.CheckAll(now); got != 2 {
		t.Errorf("stale count = %d, want 2", got)
	}
	if recorded != 2 {
		t.Errorf("metrics callback got %d, want 2", recorded)
	}
}

func TestCheckAll_recovery(t *testing.T) {
	now := time.Now()
	view := &fakeView{ids: []int{1}, infos: map[int]*status.CrlInfo{}}
	m := health.New(view, health.Config{}, zap.NewNop())

	if got := m.CheckAll(now); got != 1 {
		t.Fatalf("stale count = %d, want 1", got)
	}

	// Fresh metadata arrives; the next sweep reports recovery.
	view.infos[1] = &status.CrlInfo{Number: 6, NextUpdate: now.Add(24 * time.Hour)}
	if got := m.CheckAll(now); got != 0 {
		t.Errorf("stale count after recovery = %d, want 0", got)
	}
}

func TestCheckAll_droppedIssuerForgotten(t *testing.T) {
	now := time.Now()
	view := &fakeView{ids: []int{1}, infos: map[int]*status.CrlInfo{}}
	m := health.New(view, health.Config{}, zap.NewNop())
	m.CheckAll(now)

	// The issuer disappears entirely; nothing is stale anymore.
	view.ids = nil
	if got := m.CheckAll(now); got != 0 {
		t.Errorf("stale count = %d, want 0", got)
	}
}

func TestCheckAll_worksWithIssuerStore(t *testing.T) {
	s := status.NewIssuerStore()
	m := health.New(s, health.Config{}, zap.NewNop())
	if got := m.CheckAll(time.Now()); got != 0 {
		t.Errorf("empty store reported %d stale issuers", got)
	}
}
