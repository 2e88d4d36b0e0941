package inventory

import (
	"sort"
	"sync"
)

// variantLocks serialises writers per variant code within one process.
// Cross-process writers are caught by the event store's version check.
type variantLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newVariantLocks() *variantLocks {
	return &variantLocks{entries: make(map[string]*lockEntry)}
}

// lock acquires every code in sorted order and returns the matching unlock.
func (l *variantLocks) lock(codes []string) func() {
	sorted := uniqueSorted(codes)

	held := make([]*lockEntry, 0, len(sorted))
	for _, code := range sorted {
		l.mu.Lock()
		entry, ok := l.entries[code]
		if !ok {
			entry = &lockEntry{}
			l.entries[code] = entry
		}
		entry.refs++
		l.mu.Unlock()

		entry.mu.Lock()
		held = append(held, entry)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		l.mu.Lock()
		for i, code := range sorted {
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.entries, code)
			}
		}
		l.mu.Unlock()
	}
}

func uniqueSorted(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
