package dedupe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bakkerme/jobalert/internal/core"
)

// SeenSet holds the identifiers of postings already notified. It is an
// in-memory value; nothing reaches durable storage until Store.Save.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet returns a set holding the valid identifiers among ids.
func NewSeenSet(ids ...string) SeenSet {
	s := SeenSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s SeenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add records id. Identifiers that cannot round-trip through a store are
// ignored and reported as false.
func (s *SeenSet) Add(id string) bool {
	if !core.ValidID(id) {
		return false
	}
	if s.ids == nil {
		s.ids = map[string]struct{}{}
	}
	s.ids[id] = struct{}{}
	return true
}

func (s SeenSet) Len() int {
	return len(s.ids)
}

// IDs returns the identifiers in lexical order.
func (s SeenSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s SeenSet) Clone() SeenSet {
	return NewSeenSet(s.IDs()...)
}

// Store persists a SeenSet between runs. Save replaces the durable contents
// wholesale, so identifiers absent from the saved set are removed.
type Store interface {
	Load(ctx context.Context) (SeenSet, error)
	Save(ctx context.Context, seen SeenSet) error
	Close() error
}

// Options selects and configures a Store backend.
type Options struct {
	Type  string
	Path  string
	DSN   string
	Table string
}

// Open constructs the backend named by opts.Type.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Type)) {
	case "", "file":
		return NewFileStore(opts.Path)
	case "sqlite":
		return NewSQLiteStore(opts.Path, opts.Table)
	case "badger":
		return NewBadgerStore(opts.Path)
	case "postgres":
		return NewPostgresStore(ctx, opts.DSN, opts.Table)
	default:
		return nil, fmt.Errorf("unsupported store type %q", opts.Type)
	}
}
