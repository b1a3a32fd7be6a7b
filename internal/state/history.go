package state

import (
	"fmt"
	"sort"

	"hublocal/internal/model"
	"hublocal/internal/perm"
)

// SaveSnapshot upserts a snapshot by id: an existing entry is replaced
// in place, a new one appended, and the history re-sorted ascending by
// timestamp. There is no automatic snapshot generation; callers decide
// when to compute scores and commit. Denied sessions no-op.
func (s *Store) SaveSnapshot(snap model.WeeklySnapshot) error {
	s.mu.Lock()
	if !s.resolver.Has(s.user, perm.SnapshotCreate) {
		s.mu.Unlock()
		return nil
	}

	stored := snap.Clone()
	replaced := false
	for i := range s.snapshots {
		if s.snapshots[i].ID == stored.ID {
			s.snapshots[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		s.snapshots = append(s.snapshots, stored)
	}
	sort.SliceStable(s.snapshots, func(i, j int) bool {
		return s.snapshots[i].Timestamp < s.snapshots[j].Timestamp
	})

	user := *s.user
	onSnapshot := s.onSnapshot
	s.mu.Unlock()

	s.logAction(user, "Check-in saved", fmt.Sprintf("Recorded snapshot for %s", snap.WeekLabel), model.SeveritySuccess)
	if onSnapshot != nil {
		onSnapshot(stored)
	}
	return nil
}
