package engine

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// OfflineTransitions returns the uids whose liveness flipped from true to
// false between two presence snapshots, in deterministic order. Presence is
// best-effort and carries no consistency guarantee, so the diff is computed
// on the receiving side.
func OfflineTransitions(prev, next map[string]bool) []string {
	uids := maps.Keys(prev)
	slices.Sort(uids)

	offline := make([]string, 0)
	for _, uid := range uids {
		if prev[uid] && !next[uid] {
			offline = append(offline, uid)
		}
	}

	return offline
}
