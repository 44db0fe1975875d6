package core

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/ajitpratap0/scenecore/internal/data"
)

// ErrorLevel grades an ErrorItem.
type ErrorLevel int

const (
	LevelInfo ErrorLevel = iota
	LevelWarning
	LevelError
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// ErrorCategory tells which subsystem owns an ErrorItem. Each subsystem
// only clears items of its own category.
type ErrorCategory int

const (
	CategoryGeneral ErrorCategory = iota
	CategoryParse
	CategoryBrokenLink
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryParse:
		return "parse"
	case CategoryBrokenLink:
		return "broken-link"
	}
	return "unknown"
}

// ErrorItem is a problem attached to an object or a property. Items are
// derived state: they are rebuilt from the model and never saved or undone.
type ErrorItem struct {
	Category ErrorCategory
	Level    ErrorLevel
	Handle   Handle
	Message  string
}

// Errors is the registry of ErrorItems of one Context, at most one per
// handle. Every change is reported to the context's recorders.
type Errors struct {
	items    map[string]ErrorItem
	recorder Recorder
	logger   *slog.Logger
}

func newErrors(recorder Recorder, logger *slog.Logger) *Errors {
	return &Errors{items: make(map[string]ErrorItem), recorder: recorder, logger: logger}
}

// Add stores an item for h, replacing any item already there. It reports
// whether anything changed.
func (e *Errors) Add(category ErrorCategory, level ErrorLevel, h Handle, message string) bool {
	key := h.Key()
	item := ErrorItem{Category: category, Level: level, Handle: h, Message: message}
	if old, ok := e.items[key]; ok && old.Category == category && old.Level == level && old.Message == message {
		return false
	}
	e.items[key] = item
	if level == LevelError {
		e.logger.Warn(message, "at", h.String(), "category", category.String())
	} else {
		e.logger.Debug(message, "at", h.String(), "category", category.String(), "level", level.String())
	}
	e.recorder.RecordErrorChanged(h)
	return true
}

// Remove drops the item of h. It reports whether there was one.
func (e *Errors) Remove(h Handle) bool {
	key := h.Key()
	if _, ok := e.items[key]; !ok {
		return false
	}
	delete(e.items, key)
	e.recorder.RecordErrorChanged(h)
	return true
}

// RemoveCategory drops the item of h only when it belongs to category.
func (e *Errors) RemoveCategory(h Handle, category ErrorCategory) bool {
	if item, ok := e.items[h.Key()]; ok && item.Category == category {
		return e.Remove(h)
	}
	return false
}

// RemoveAll drops every item attached to obj or one of its properties.
func (e *Errors) RemoveAll(obj *Object) bool {
	changed := false
	for _, key := range sortedKeys(e.items) {
		if item := e.items[key]; item.Handle.Object() == obj {
			delete(e.items, key)
			e.recorder.RecordErrorChanged(item.Handle)
			changed = true
		}
	}
	return changed
}

// Has reports whether h carries an item.
func (e *Errors) Has(h Handle) bool {
	_, ok := e.items[h.Key()]
	return ok
}

// Get returns the item of h.
func (e *Errors) Get(h Handle) (ErrorItem, bool) {
	item, ok := e.items[h.Key()]
	return item, ok
}

// Len returns the number of items.
func (e *Errors) Len() int { return len(e.items) }

// Items returns every item, ordered by object ID and property path.
func (e *Errors) Items() []ErrorItem {
	out := make([]ErrorItem, 0, len(e.items))
	for _, key := range sortedKeys(e.items) {
		out = append(out, e.items[key])
	}
	return out
}

// MaxLevel returns the highest level among the items, or false when
// there are none.
func (e *Errors) MaxLevel() (ErrorLevel, bool) {
	if len(e.items) == 0 {
		return LevelInfo, false
	}
	highest := LevelInfo
	for _, item := range e.items {
		if item.Level > highest {
			highest = item.Level
		}
	}
	return highest, true
}

// updateBrokenLinkError sets a warning on obj listing the invalid links
// that end at it, or clears the warning when there are none.
func (c *Context) updateBrokenLinkError(obj *Object) {
	if !c.project.Contains(obj) {
		return
	}
	var broken []string
	for _, l := range c.project.LinksConnectedTo(obj, false, true) {
		if !l.Valid {
			broken = append(broken, l.Start.String()+" -> "+l.End.Path())
		}
	}
	h := ObjectHandle(obj)
	if len(broken) == 0 {
		c.errors.RemoveCategory(h, CategoryBrokenLink)
		return
	}
	sort.Strings(broken)
	c.errors.Add(CategoryBrokenLink, LevelWarning, h, "broken links: "+strings.Join(broken, ", "))
}

// updateEmptyReferenceError flags a Ref property outside an array table that
// is null without carrying the ExpectEmptyReference annotation.
func (c *Context) updateEmptyReferenceError(h Handle) {
	v := h.Value()
	if v == nil || v.Kind() != data.KindRef || data.IsArray(h.Parent().Value()) {
		return
	}
	if refObject(v) == nil && !v.HasAnnotation(data.AnnotationExpectEmptyReference) {
		c.errors.Add(CategoryGeneral, LevelWarning, h, "reference not set")
		return
	}
	c.errors.RemoveCategory(h, CategoryGeneral)
}
