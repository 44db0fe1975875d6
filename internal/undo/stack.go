// Package undo implements linear undo/redo history over project snapshots.
package undo

import (
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
	"github.com/ajitpratap0/scenecore/internal/metrics"
)

// InitialDescription names the entry created with the stack.
const InitialDescription = "Initial"

// Entry is one step of history. The snapshot is frozen once committed.
type Entry struct {
	Description string
	MergeID     string
	state       *core.Project
}

// Stack records snapshots of the live project of a Context.
type Stack struct {
	ctx      *core.Context
	entries  []*Entry
	index    int
	onChange func()
	logger   *slog.Logger
}

// New creates a stack whose initial entry is a full snapshot of the live
// project. onChange runs after every push and every navigation; it may be nil.
func New(ctx *core.Context, onChange func(), logger *slog.Logger) (*Stack, error) {
	if onChange == nil {
		onChange = func() {}
	}
	if logger == nil {
		logger = ctx.Logger()
	}
	s := &Stack{ctx: ctx, onChange: onChange, logger: logger}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stack) init() error {
	state, err := SaveProjectState(s.ctx.Project(), nil, nil, s.ctx.Factory())
	if err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	state.Freeze()
	s.entries = []*Entry{{Description: InitialDescription, state: state}}
	s.index = 0
	return nil
}

// Reset drops all history and takes a fresh initial snapshot.
func (s *Stack) Reset() error {
	s.ctx.ModelChanges().Reset()
	if err := s.init(); err != nil {
		return err
	}
	s.onChange()
	return nil
}

// Push commits the changes recorded since the last push as a new entry. The
// redo tail is dropped. When mergeID is non-empty, equals the merge ID of
// the last entry, and the changes only touched values, the last entry is
// replaced by a snapshot of the current state instead.
func (s *Stack) Push(description, mergeID string) error {
	changes := s.ctx.ModelChanges()
	last := s.entries[s.index]

	state, err := SaveProjectState(s.ctx.Project(), last.state, changes, s.ctx.Factory())
	if err != nil {
		return fmt.Errorf("pushing %q: %w", description, err)
	}
	state.Freeze()

	// The redo tail only goes once the new entry exists.
	s.entries = s.entries[:s.index+1]
	if mergeID != "" && mergeID == last.MergeID && changes.CanMergeUndo() {
		s.entries[len(s.entries)-1] = &Entry{Description: description, MergeID: mergeID, state: state}
		metrics.Inc(metrics.UndoMerges)
		s.logger.Debug("undo entry merged", "description", description, "merge_id", mergeID)
	} else {
		s.entries = append(s.entries, &Entry{Description: description, MergeID: mergeID, state: state})
		s.index++
		metrics.Inc(metrics.UndoPushes)
		s.logger.Debug("undo entry pushed", "description", description, "index", s.index)
	}

	s.onChange()
	changes.Reset()
	return nil
}

// SetIndex restores the entry at index. Restoring the current entry is a
// no-op unless force is set. It returns the new index.
func (s *Stack) SetIndex(index int, force bool) (int, error) {
	if index < 0 || index >= len(s.entries) {
		return s.index, fmt.Errorf("%w: undo index %d, size %d", data.ErrOutOfRange, index, len(s.entries))
	}
	if index == s.index && !force {
		return s.index, nil
	}
	s.index = index
	err := RestoreProjectState(s.entries[index].state, s.ctx)
	s.onChange()
	if err != nil {
		s.logger.Error("restoring undo entry", "index", index, "description", s.entries[index].Description, "error", err)
		return s.index, err
	}
	return s.index, nil
}

// Undo restores the previous entry. It does nothing at the initial entry.
func (s *Stack) Undo() error {
	if !s.CanUndo() {
		return nil
	}
	metrics.Inc(metrics.Undos)
	_, err := s.SetIndex(s.index-1, false)
	return err
}

// Redo restores the next entry. It does nothing at the last entry.
func (s *Stack) Redo() error {
	if !s.CanRedo() {
		return nil
	}
	metrics.Inc(metrics.Redos)
	_, err := s.SetIndex(s.index+1, false)
	return err
}

func (s *Stack) Index() int    { return s.index }
func (s *Stack) Size() int     { return len(s.entries) }
func (s *Stack) CanUndo() bool { return s.index > 0 }
func (s *Stack) CanRedo() bool { return s.index < len(s.entries)-1 }

// Description returns the description of the entry at index.
func (s *Stack) Description(index int) (string, error) {
	if index < 0 || index >= len(s.entries) {
		return "", fmt.Errorf("%w: undo index %d, size %d", data.ErrOutOfRange, index, len(s.entries))
	}
	return s.entries[index].Description, nil
}

// Snapshot returns the frozen project of the entry at index, or nil.
func (s *Stack) Snapshot(index int) *core.Project {
	if index < 0 || index >= len(s.entries) {
		return nil
	}
	return s.entries[index].state
}
