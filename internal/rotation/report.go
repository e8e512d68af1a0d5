package rotation

import (
	"sync"
	"time"

	"github.com/raoulx24/dir-archiver/internal/archive"
	"github.com/raoulx24/dir-archiver/internal/retention"
)

// Report describes what one rotation pass did to one target.
type Report struct {
	Target         string           `json:"target"`
	RunID          string           `json:"run_id"`
	Started        time.Time        `json:"started"`
	Finished       time.Time        `json:"finished"`
	DryRun         bool             `json:"dry_run,omitempty"`
	Archived       *archive.Archive `json:"archived,omitempty"`
	ArchiveExisted bool             `json:"archive_existed,omitempty"`
	WouldArchive   bool             `json:"would_archive,omitempty"`
	ExpiredRemoved []string         `json:"expired_removed"`
	SizeEvicted    []string         `json:"size_evicted"`
	FreedBytes     int64            `json:"freed_bytes"`
	RootBytes      int64            `json:"root_bytes,omitempty"`
	Error          string           `json:"error,omitempty"`

	Classifications []retention.Classification `json:"-"`
}

// OK reports whether the pass finished without error.
func (r Report) OK() bool {
	return r.Error == ""
}

// Tiers counts the pass's classifications by tier name.
func (r Report) Tiers() map[string]int {
	out := make(map[string]int)
	for tier, n := range retention.Counts(r.Classifications) {
		out[tier.String()] = n
	}
	return out
}

// History keeps the latest report per target.
type History struct {
	mu   sync.RWMutex
	last map[string]Report
}

func NewHistory() *History {
	return &History{last: make(map[string]Report)}
}

// Record stores reports, replacing earlier ones for the same target.
func (h *History) Record(reports ...Report) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range reports {
		h.last[r.Target] = r
	}
}

// Last returns the latest report per target.
func (h *History) Last() map[string]Report {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]Report, len(h.last))
	for k, v := range h.last {
		out[k] = v
	}
	return out
}
