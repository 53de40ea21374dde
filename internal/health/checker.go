// Package health watches the freshness of the loaded CRL metadata. Issuers
// whose revocation data is missing or past its NextUpdate answer every status
// query with "unavailable", so going stale is an operational incident worth
// surfacing before clients notice.
package health

import (
	"os"
	"sync"
	"time"

	"github.com/canopy-pki/canopy/internal/status"
	"go.uber.org/zap"
)

// Config holds CRL freshness monitoring configuration.
type Config struct {
	CheckInterval time.Duration
	// WarnLead is how long before a CRL's NextUpdate a warning is logged.
	WarnLead time.Duration
}

// IssuerView is the slice of the issuer store the monitor reads.
type IssuerView interface {
	IDs() []int
	CrlInfo(id int) (*status.CrlInfo, bool)
}

// MetricsRecordFunc is an optional callback recording the stale issuer count
// after each sweep.
type MetricsRecordFunc func(stale int)

// CrlMonitor periodically sweeps all loaded issuers and logs transitions
// between fresh and stale revocation data.
type CrlMonitor struct {
	issuers   IssuerView
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger

	mu    sync.Mutex
	stale map[int]bool
}

// New creates a CrlMonitor.
func New(issuers IssuerView, cfg Config, logger *zap.Logger) *CrlMonitor {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.WarnLead == 0 {
		cfg.WarnLead = time.Hour
	}
	return &CrlMonitor{
		issuers: issuers,
		cfg:     cfg,
		logger:  logger,
		stale:   make(map[int]bool),
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (m *CrlMonitor) SetMetricsRecord(fn MetricsRecordFunc) {
	m.onMetrics = fn
}

// Start runs the sweep loop until quit is signalled.
func (m *CrlMonitor) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckAll(time.Now())
		case <-quit:
			return
		}
	}
}

// CheckAll sweeps every loaded issuer once and returns the stale count.
func (m *CrlMonitor) CheckAll(now time.Time) int {
	ids := m.issuers.IDs()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Issuers that disappeared from the store take their state with them.
	current := make(map[int]bool, len(ids))
	staleCount := 0

	for _, id := range ids {
		info, ok := m.issuers.CrlInfo(id)
		fresh := ok && info.Usable(now)
		current[id] = !fresh

		wasStale, known := m.stale[id]
		switch {
		case !fresh && (!known || !wasStale):
			m.logger.Warn("issuer revocation data stale",
				zap.Int("issuer_id", id),
				zap.Bool("metadata_present", ok),
			)
		case fresh && known && wasStale:
			m.logger.Info("issuer revocation data recovered",
				zap.Int("issuer_id", id),
				zap.Int64("crl_number", info.Number),
			)
		case fresh && info.NextUpdate.Sub(now) < m.cfg.WarnLead:
			m.logger.Warn("issuer revocation data expiring soon",
				zap.Int("issuer_id", id),
				zap.Time("next_update", info.NextUpdate),
			)
		}
		if !fresh {
			staleCount++
		}
	}
	m.stale = current

	if m.onMetrics != nil {
		m.onMetrics(staleCount)
	}
	return staleCount
}
