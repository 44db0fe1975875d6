package core

import "sort"

// Recorder receives every mutation of a live project.
type Recorder interface {
	Reset()
	RecordCreateObject(obj *Object)
	RecordDeleteObject(obj *Object)
	RecordValueChanged(h Handle)
	RecordAddLink(l Link)
	RecordChangeValidityOfLink(l Link)
	RecordRemoveLink(l Link)
	RecordPreviewDirty(obj *Object)
	RecordErrorChanged(h Handle)
}

// ChangeRecorder accumulates the net effect of one transaction. Creating
// and deleting the same object cancels out, nested value changes collapse
// into the outermost handle, and add/remove of the same link cancels out.
type ChangeRecorder struct {
	created      map[*Object]struct{}
	deleted      map[*Object]struct{}
	previewDirty map[*Object]struct{}

	// object ID -> handle key -> handle
	changedValues map[string]map[string]Handle

	// end object ID -> links
	addedLinks    map[string][]Link
	validityLinks map[string][]Link
	removedLinks  map[string][]Link

	// handle key -> handle whose error item was added, replaced or removed
	changedErrors map[string]Handle
}

// NewChangeRecorder returns an empty recorder.
func NewChangeRecorder() *ChangeRecorder {
	r := &ChangeRecorder{}
	r.Reset()
	return r
}

// Reset clears all recorded state.
func (r *ChangeRecorder) Reset() {
	r.created = make(map[*Object]struct{})
	r.deleted = make(map[*Object]struct{})
	r.previewDirty = make(map[*Object]struct{})
	r.changedValues = make(map[string]map[string]Handle)
	r.addedLinks = make(map[string][]Link)
	r.validityLinks = make(map[string][]Link)
	r.removedLinks = make(map[string][]Link)
	r.changedErrors = make(map[string]Handle)
}

// Release returns a detached copy of the recorded state and resets r.
func (r *ChangeRecorder) Release() *ChangeRecorder {
	out := &ChangeRecorder{
		created:       r.created,
		deleted:       r.deleted,
		previewDirty:  r.previewDirty,
		changedValues: r.changedValues,
		addedLinks:    r.addedLinks,
		validityLinks: r.validityLinks,
		removedLinks:  r.removedLinks,
		changedErrors: r.changedErrors,
	}
	r.Reset()
	return out
}

func (r *ChangeRecorder) RecordCreateObject(obj *Object) {
	r.created[obj] = struct{}{}
}

// RecordDeleteObject records a deletion, or cancels a creation from the same
// transaction. Value changes recorded for obj are dropped either way.
func (r *ChangeRecorder) RecordDeleteObject(obj *Object) {
	if _, ok := r.created[obj]; ok {
		delete(r.created, obj)
	} else {
		r.deleted[obj] = struct{}{}
	}
	delete(r.previewDirty, obj)
	id := obj.ObjectID()
	for key, h := range r.changedValues[id] {
		if h.Object() == obj {
			delete(r.changedValues[id], key)
		}
	}
	if len(r.changedValues[id]) == 0 {
		delete(r.changedValues, id)
	}
}

// RecordValueChanged records h unless an already recorded handle contains
// it, and drops recorded handles that h contains.
func (r *ChangeRecorder) RecordValueChanged(h Handle) {
	id := h.Object().ObjectID()
	set := r.changedValues[id]
	if set == nil {
		set = make(map[string]Handle)
		r.changedValues[id] = set
	}
	for key, existing := range set {
		if existing.Contains(h) && !h.Contains(existing) {
			return
		}
		if h.Contains(existing) {
			delete(set, key)
		}
	}
	set[h.Key()] = h
}

// RecordAddLink records a new link, or refreshes the flags of an already added one.
func (r *ChangeRecorder) RecordAddLink(l Link) {
	id := l.End.Object.ObjectID()
	if i := indexOfLink(r.addedLinks[id], l); i >= 0 {
		r.addedLinks[id][i].Valid = l.Valid
		return
	}
	r.addedLinks[id] = append(r.addedLinks[id], l)
}

// RecordChangeValidityOfLink folds the change into a pending add when there
// is one, otherwise records it separately.
func (r *ChangeRecorder) RecordChangeValidityOfLink(l Link) {
	id := l.End.Object.ObjectID()
	if i := indexOfLink(r.addedLinks[id], l); i >= 0 {
		r.addedLinks[id][i].Valid = l.Valid
		return
	}
	if i := indexOfLink(r.validityLinks[id], l); i >= 0 {
		r.validityLinks[id][i].Valid = l.Valid
		return
	}
	r.validityLinks[id] = append(r.validityLinks[id], l)
}

// RecordRemoveLink clears pending validity changes, cancels a pending add,
// and otherwise records a genuine removal.
func (r *ChangeRecorder) RecordRemoveLink(l Link) {
	id := l.End.Object.ObjectID()
	r.validityLinks[id] = dropLink(r.validityLinks[id], l)
	if len(r.validityLinks[id]) == 0 {
		delete(r.validityLinks, id)
	}
	if i := indexOfLink(r.addedLinks[id], l); i >= 0 {
		r.addedLinks[id] = dropLink(r.addedLinks[id], l)
		if len(r.addedLinks[id]) == 0 {
			delete(r.addedLinks, id)
		}
		return
	}
	if indexOfLink(r.removedLinks[id], l) < 0 {
		r.removedLinks[id] = append(r.removedLinks[id], l)
	}
}

func (r *ChangeRecorder) RecordPreviewDirty(obj *Object) {
	r.previewDirty[obj] = struct{}{}
}

func (r *ChangeRecorder) RecordErrorChanged(h Handle) {
	r.changedErrors[h.Key()] = h
}

func indexOfLink(list []Link, l Link) int {
	for i := range list {
		if list[i].SameEndpoints(l) {
			return i
		}
	}
	return -1
}

func dropLink(list []Link, l Link) []Link {
	out := list[:0:0]
	for _, x := range list {
		if !x.SameEndpoints(l) {
			out = append(out, x)
		}
	}
	return out
}

// Merge replays the state of other into r, in the order: created, deleted,
// values, preview dirty, removed links, added links, validity changes,
// errors.
func (r *ChangeRecorder) Merge(other *ChangeRecorder) {
	for _, o := range sortedObjects(other.created) {
		r.RecordCreateObject(o)
	}
	for _, o := range sortedObjects(other.deleted) {
		r.RecordDeleteObject(o)
	}
	for _, id := range sortedKeys(other.changedValues) {
		for _, key := range sortedKeys(other.changedValues[id]) {
			r.RecordValueChanged(other.changedValues[id][key])
		}
	}
	for _, o := range sortedObjects(other.previewDirty) {
		r.RecordPreviewDirty(o)
	}
	for _, id := range sortedKeys(other.removedLinks) {
		for _, l := range other.removedLinks[id] {
			r.RecordRemoveLink(l)
		}
	}
	for _, id := range sortedKeys(other.addedLinks) {
		for _, l := range other.addedLinks[id] {
			r.RecordAddLink(l)
		}
	}
	for _, id := range sortedKeys(other.validityLinks) {
		for _, l := range other.validityLinks[id] {
			r.RecordChangeValidityOfLink(l)
		}
	}
	for _, key := range sortedKeys(other.changedErrors) {
		r.RecordErrorChanged(other.changedErrors[key])
	}
}

// CreatedObjects returns the objects created in this transaction, by ID.
func (r *ChangeRecorder) CreatedObjects() []*Object { return sortedObjects(r.created) }

// DeletedObjects returns the objects deleted in this transaction, by ID.
func (r *ChangeRecorder) DeletedObjects() []*Object { return sortedObjects(r.deleted) }

// PreviewDirtyObjects returns objects flagged for a preview refresh, by ID.
func (r *ChangeRecorder) PreviewDirtyObjects() []*Object { return sortedObjects(r.previewDirty) }

// ChangedValues returns object ID -> changed handles, sorted by key.
func (r *ChangeRecorder) ChangedValues() map[string][]Handle {
	out := make(map[string][]Handle, len(r.changedValues))
	for id, set := range r.changedValues {
		handles := make([]Handle, 0, len(set))
		for _, key := range sortedKeys(set) {
			handles = append(handles, set[key])
		}
		out[id] = handles
	}
	return out
}

// AddedLinks returns end object ID -> added links.
func (r *ChangeRecorder) AddedLinks() map[string][]Link { return copyLinkMap(r.addedLinks) }

// ValidityChangedLinks returns end object ID -> links whose validity changed.
func (r *ChangeRecorder) ValidityChangedLinks() map[string][]Link {
	return copyLinkMap(r.validityLinks)
}

// RemovedLinks returns end object ID -> removed links.
func (r *ChangeRecorder) RemovedLinks() map[string][]Link { return copyLinkMap(r.removedLinks) }

func copyLinkMap(m map[string][]Link) map[string][]Link {
	out := make(map[string][]Link, len(m))
	for id, links := range m {
		out[id] = append([]Link(nil), links...)
	}
	return out
}

// HasValueChanged reports whether h or a handle containing it was recorded.
func (r *ChangeRecorder) HasValueChanged(h Handle) bool {
	for _, existing := range r.changedValues[h.Object().ObjectID()] {
		if existing.Contains(h) {
			return true
		}
	}
	return false
}

// IsLinkAdded reports whether a link with the endpoints of l was added.
func (r *ChangeRecorder) IsLinkAdded(l Link) bool {
	return indexOfLink(r.addedLinks[l.End.Object.ObjectID()], l) >= 0
}

// IsLinkValidityChanged reports whether the validity of l changed.
func (r *ChangeRecorder) IsLinkValidityChanged(l Link) bool {
	return indexOfLink(r.validityLinks[l.End.Object.ObjectID()], l) >= 0
}

// ChangedErrors returns the handles whose error item changed, sorted by key.
func (r *ChangeRecorder) ChangedErrors() []Handle {
	out := make([]Handle, 0, len(r.changedErrors))
	for _, key := range sortedKeys(r.changedErrors) {
		out = append(out, r.changedErrors[key])
	}
	return out
}

// HasErrorChanges reports whether an error item was added, replaced or removed.
func (r *ChangeRecorder) HasErrorChanges() bool { return len(r.changedErrors) > 0 }

// IsEmpty reports whether nothing was recorded in the model. Error changes
// are derived state and do not count; see HasErrorChanges.
func (r *ChangeRecorder) IsEmpty() bool {
	return len(r.created) == 0 && len(r.deleted) == 0 && len(r.previewDirty) == 0 &&
		len(r.changedValues) == 0 && len(r.addedLinks) == 0 &&
		len(r.validityLinks) == 0 && len(r.removedLinks) == 0
}

// HasLinkChanges reports whether any link was added, removed or changed validity.
func (r *ChangeRecorder) HasLinkChanges() bool {
	return len(r.addedLinks) > 0 || len(r.validityLinks) > 0 || len(r.removedLinks) > 0
}

// CanMergeUndo reports whether the transaction only changed values, which is
// the condition for coalescing it into the previous undo entry.
func (r *ChangeRecorder) CanMergeUndo() bool {
	return len(r.created) == 0 && len(r.deleted) == 0 && !r.HasLinkChanges()
}

// AllChangedObjects returns every object touched by the transaction that is
// not deleted: created objects, objects with value changes, and optionally
// preview-dirty objects and link endpoints. The result is sorted by ID.
func (r *ChangeRecorder) AllChangedObjects(includePreviewDirty, includeLinkStart, includeLinkEnd bool) []*Object {
	set := make(map[*Object]struct{})
	for o := range r.created {
		set[o] = struct{}{}
	}
	for _, handles := range r.changedValues {
		for _, h := range handles {
			set[h.Object()] = struct{}{}
		}
	}
	if includePreviewDirty {
		for o := range r.previewDirty {
			set[o] = struct{}{}
		}
	}
	for _, m := range []map[string][]Link{r.addedLinks, r.validityLinks} {
		for _, links := range m {
			for _, l := range links {
				if includeLinkStart {
					set[l.Start.Object] = struct{}{}
				}
				if includeLinkEnd {
					set[l.End.Object] = struct{}{}
				}
			}
		}
	}
	for o := range r.deleted {
		delete(set, o)
	}
	return sortedObjects(set)
}

func sortedObjects(set map[*Object]struct{}) []*Object {
	out := make([]*Object, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID() < out[j].ObjectID() })
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Multiplexer fans every call out to a set of recorders.
type Multiplexer struct {
	recorders []Recorder
}

// NewMultiplexer returns a multiplexer forwarding to the given recorders.
func NewMultiplexer(recorders ...Recorder) *Multiplexer {
	return &Multiplexer{recorders: append([]Recorder(nil), recorders...)}
}

// Add registers rec. Adding a registered recorder is a no-op.
func (m *Multiplexer) Add(rec Recorder) {
	for _, r := range m.recorders {
		if r == rec {
			return
		}
	}
	m.recorders = append(m.recorders, rec)
}

// Remove unregisters rec.
func (m *Multiplexer) Remove(rec Recorder) {
	for i, r := range m.recorders {
		if r == rec {
			m.recorders = append(m.recorders[:i], m.recorders[i+1:]...)
			return
		}
	}
}

func (m *Multiplexer) Reset() {
	for _, r := range m.recorders {
		r.Reset()
	}
}

func (m *Multiplexer) RecordCreateObject(obj *Object) {
	for _, r := range m.recorders {
		r.RecordCreateObject(obj)
	}
}

func (m *Multiplexer) RecordDeleteObject(obj *Object) {
	for _, r := range m.recorders {
		r.RecordDeleteObject(obj)
	}
}

func (m *Multiplexer) RecordValueChanged(h Handle) {
	for _, r := range m.recorders {
		r.RecordValueChanged(h)
	}
}

func (m *Multiplexer) RecordAddLink(l Link) {
	for _, r := range m.recorders {
		r.RecordAddLink(l)
	}
}

func (m *Multiplexer) RecordChangeValidityOfLink(l Link) {
	for _, r := range m.recorders {
		r.RecordChangeValidityOfLink(l)
	}
}

func (m *Multiplexer) RecordRemoveLink(l Link) {
	for _, r := range m.recorders {
		r.RecordRemoveLink(l)
	}
}

func (m *Multiplexer) RecordPreviewDirty(obj *Object) {
	for _, r := range m.recorders {
		r.RecordPreviewDirty(obj)
	}
}

func (m *Multiplexer) RecordErrorChanged(h Handle) {
	for _, r := range m.recorders {
		r.RecordErrorChanged(h)
	}
}
