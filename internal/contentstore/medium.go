package contentstore

import (
	"context"
	"strings"
)

// Kind tags the backing medium chosen for an operation.
type Kind int

const (
	FileBacked Kind = iota
	GitBacked
	ObjectStoreBacked
)

func (k Kind) String() string {
	switch k {
	case GitBacked:
		return "git"
	case FileBacked:
		return "file"
	case ObjectStoreBacked:
		return "object_store"
	default:
		return "unknown"
	}
}

// Medium is the result of one selection. Read and Write consume the same
// value so they cannot disagree about the medium mid-operation.
type Medium struct {
	Kind Kind
	// FileWritable records the probe result that drove the selection.
	FileWritable bool
	// ObjectFallback is set when a bucket is configured.
	ObjectFallback bool
}

// Select decides the medium from configuration and, when no token is set,
// one writability probe of the local file.
func (s *Store) Select(ctx context.Context) Medium {
	m := Medium{ObjectFallback: s.object != nil}
	if s.git != nil {
		m.Kind = GitBacked
		return m
	}
	m.FileWritable = s.file.Writable()
	switch {
	case m.FileWritable:
		m.Kind = FileBacked
	case m.ObjectFallback:
		m.Kind = ObjectStoreBacked
	default:
		m.Kind = FileBacked
	}
	return m
}

// ParseRepo splits "owner/name".
func ParseRepo(repo string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}
