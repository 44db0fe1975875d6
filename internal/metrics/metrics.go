// Package metrics holds process-wide counters for edits and undo history.
// The run command prints them through Snapshot when --metrics is set.
package metrics

import "expvar"

// Undo stack counters.
var (
	UndoPushes = expvar.NewInt("scenecore_undo_pushes_total")
	UndoMerges = expvar.NewInt("scenecore_undo_merges_total")
	Undos      = expvar.NewInt("scenecore_undo_total")
	Redos      = expvar.NewInt("scenecore_redo_total")
)

// Edit counters.
var (
	ObjectsCreated = expvar.NewInt("scenecore_objects_created_total")
	ObjectsDeleted = expvar.NewInt("scenecore_objects_deleted_total")
	LinksAdded     = expvar.NewInt("scenecore_links_added_total")
	CyclesRejected = expvar.NewInt("scenecore_link_cycles_rejected_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

// Add increments the given counter by n.
func Add(counter *expvar.Int, n int) { counter.Add(int64(n)) }

// Snapshot returns the current value of every counter, keyed by its
// exported name.
func Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, c := range []*expvar.Int{
		UndoPushes, UndoMerges, Undos, Redos,
		ObjectsCreated, ObjectsDeleted, LinksAdded, CyclesRejected,
	} {
		out[name(c)] = c.Value()
	}
	return out
}

func name(c *expvar.Int) string {
	var found string
	expvar.Do(func(kv expvar.KeyValue) {
		if kv.Value == c {
			found = kv.Key
		}
	})
	return found
}
