package indicators

import (
	"sync"
)

// Capability records which computation paths are available. It is
// probed once per process and shared by every indicator, so callers
// never re-detect per call and a forced override applies everywhere at
// once.
type Capability struct {
	// FastRolling selects the incremental rolling-window path. The
	// reference path recomputes each window and exists as the oracle
	// the fast path is checked against.
	FastRolling bool
	// Backend names the selected path for logs and summaries.
	Backend string
}

var (
	capOnce   sync.Once
	capMu     sync.RWMutex
	activeCap Capability
)

// Active returns the shared capability record, probing on first use.
func Active() Capability {
	capOnce.Do(func() {
		capMu.Lock()
		activeCap = Capability{FastRolling: true, Backend: "rolling"}
		capMu.Unlock()
	})
	capMu.RLock()
	defer capMu.RUnlock()
	return activeCap
}

// Override replaces the shared capability record. Tests use it to pin
// the reference path; it returns a restore function.
func Override(c Capability) (restore func()) {
	prev := Active()
	capMu.Lock()
	activeCap = c
	capMu.Unlock()
	return func() {
		capMu.Lock()
		activeCap = prev
		capMu.Unlock()
	}
}
