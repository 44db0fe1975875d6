package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/serialization"
)

// ErrNotFound is returned by Load and Delete when the requested project does not exist.
var ErrNotFound = errors.New("project not found")

// ErrInvalidName is returned for project names that cannot be stored.
var ErrInvalidName = errors.New("invalid project name")

// Store defines the interface for project persistence.
type Store interface {
	// Save writes project under name, replacing any previous version.
	Save(ctx context.Context, name string, project *core.Project, featureLevel int) error

	// Load reads the project stored under name.
	Load(ctx context.Context, name string, factory *core.Factory) (*serialization.Result, error)

	// List returns the stored project names, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes a project by name.
	Delete(ctx context.Context, name string) error

	// Close cleans up resources.
	Close() error
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// DefaultLoadConcurrency is used by LoadAll when no limit is given.
const DefaultLoadConcurrency = 4

// LoadAll loads the named projects with at most limit loads in flight.
// Results are in the order of names; the first failure cancels the
// remaining loads.
func LoadAll(ctx context.Context, st Store, names []string, factory *core.Factory, limit int) ([]*serialization.Result, error) {
	if limit <= 0 {
		limit = DefaultLoadConcurrency
	}
	results := make([]*serialization.Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		g.Go(func() error {
			res, err := st.Load(gctx, name, factory)
			if err != nil {
				return fmt.Errorf("loading %s: %w", name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
