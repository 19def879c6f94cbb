package contentstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
	"github.com/brilliantaksan/brilliantaksan-web/internal/xerrors"
)

var (
	// ErrConflict means the revision marker was stale: someone else saved
	// first. It is surfaced to the editor, never retried.
	ErrConflict = errors.New("content was changed by another save")

	// ErrNoWritableMedium means the filesystem is read-only and no remote
	// medium is configured to take the write.
	ErrNoWritableMedium = errors.New("no writable content medium")
)

// NoWritableMediumError names the configuration that would make the write succeed.
type NoWritableMediumError struct {
	Path string
	Err  error
}

func (e *NoWritableMediumError) Error() string {
	return fmt.Sprintf("server filesystem is read-only (%s: %v). Set BA_GITHUB_TOKEN or BA_CONTENT_S3_BUCKET to persist admin changes", e.Path, e.Err)
}

func (e *NoWritableMediumError) Unwrap() []error { return []error{ErrNoWritableMedium, e.Err} }

// Document is one successful read.
type Document struct {
	Content sitecontent.SiteContent
	Raw     []byte
	// Revision is the compare-and-swap marker on the git medium, empty elsewhere.
	Revision string
	Medium   Kind
}

// ObserveFunc receives one call per Read or Write with op "read" or "write",
// the medium label and an outcome label.
type ObserveFunc func(op, medium, outcome string, d time.Duration)

type Options struct {
	Logger log.Logger

	// FilePath is the local document; always configured.
	FilePath string
	// GitHub is used when Token is set.
	GitHub GitHubConfig
	// ObjectStore is used when Bucket is set; API must then be non-nil.
	ObjectStore ObjectStoreConfig
	ObjectAPI   objectAPI
	// HTTPClient carries the GitHub requests (otelhttp transport in prod).
	HTTPClient *http.Client
	Observe    ObserveFunc
}

// Store reads and writes the content document.
type Store struct {
	logger  log.Logger
	git     *gitFile
	file    *localFile
	object  *objectStore
	observe ObserveFunc
}

func New(opts Options) (*Store, error) {
	if opts.FilePath == "" {
		return nil, xerrors.New("contentstore: FilePath is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	s := &Store{
		logger:  opts.Logger,
		file:    &localFile{path: opts.FilePath, fs: osFS{}},
		observe: opts.Observe,
	}
	if opts.GitHub.Token != "" {
		g, err := newGitFile(opts.GitHub, opts.HTTPClient)
		if err != nil {
			return nil, err
		}
		s.git = g
	}
	if opts.ObjectStore.Bucket != "" {
		if opts.ObjectAPI == nil {
			return nil, xerrors.New("contentstore: object store bucket set without a client")
		}
		s.object = &objectStore{api: opts.ObjectAPI, bucket: opts.ObjectStore.Bucket, key: opts.ObjectStore.Key}
	}
	return s, nil
}

// Read selects a medium and returns the parsed document. Read does not
// validate the document shape.
func (s *Store) Read(ctx context.Context) (Document, error) {
	m := s.Select(ctx)
	start := time.Now()
	doc, err := s.read(ctx, m)
	s.record(ctx, "read", doc.Medium, m, err, start)
	return doc, err
}

func (s *Store) read(ctx context.Context, m Medium) (Document, error) {
	switch m.Kind {
	case GitBacked:
		// no fallback once git is the primary
		raw, sha, err := s.git.Read(ctx)
		if err != nil {
			return Document{Medium: GitBacked}, err
		}
		return parse(raw, sha, GitBacked)

	case ObjectStoreBacked:
		raw, err := s.object.Read(ctx)
		switch {
		case err == nil:
			return parse(raw, "", ObjectStoreBacked)
		case errors.Is(err, errObjectMissing):
			s.logger.Debug(ctx, "content object missing, reading local file")
		default:
			return Document{Medium: ObjectStoreBacked}, err
		}
	}

	raw, err := s.file.Read()
	if err != nil {
		return Document{Medium: FileBacked}, xerrors.Wrap(err, "no content medium could be read")
	}
	return parse(raw, "", FileBacked)
}

func parse(raw []byte, rev string, k Kind) (Document, error) {
	doc, err := sitecontent.Decode(raw)
	if err != nil {
		return Document{Medium: k}, xerrors.Wrapf(err, "parse %s content", k)
	}
	return Document{Content: doc, Raw: raw, Revision: rev, Medium: k}, nil
}

// Write checks raw's shape, re-indents it and replaces the stored
// document on the selected medium. On the git medium the current sha is
// fetched first.
func (s *Store) Write(ctx context.Context, raw []byte) (Document, error) {
	return s.WriteWithRevision(ctx, raw, "")
}

// WriteWithRevision is Write with a marker from an earlier read. On the git
// medium a stale rev fails with ErrConflict; elsewhere rev is ignored.
func (s *Store) WriteWithRevision(ctx context.Context, raw []byte, rev string) (Document, error) {
	data, doc, err := sitecontent.Canonicalize(raw)
	if err != nil {
		return Document{}, err
	}

	m := s.Select(ctx)
	start := time.Now()
	out := Document{Content: doc, Raw: data}
	out.Medium, out.Revision, err = s.write(ctx, m, data, rev)
	s.record(ctx, "write", out.Medium, m, err, start)
	if err != nil {
		return Document{}, err
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, m Medium, data []byte, rev string) (Kind, string, error) {
	if m.Kind == GitBacked {
		if rev == "" {
			_, current, err := s.git.Read(ctx)
			if err != nil {
				return GitBacked, "", err
			}
			rev = current
		}
		next, err := s.git.Write(ctx, data, rev)
		return GitBacked, next, err
	}

	if m.Kind == ObjectStoreBacked {
		// the file was found unwritable; reads come from the bucket too
		return ObjectStoreBacked, "", s.object.Write(ctx, data)
	}

	err := s.file.Write(data)
	if err == nil {
		return FileBacked, "", nil
	}
	if !isReadOnly(err) {
		return FileBacked, "", xerrors.WithStack(err)
	}
	if s.object == nil {
		return FileBacked, "", &NoWritableMediumError{Path: s.file.path, Err: err}
	}
	s.logger.Info(ctx, "filesystem is read-only, writing content to object storage", "path", s.file.path, "bucket", s.object.bucket)
	return ObjectStoreBacked, "", s.object.Write(ctx, data)
}

func (s *Store) record(ctx context.Context, op string, used Kind, m Medium, err error, start time.Time) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrConflict):
		outcome = "conflict"
	case errors.Is(err, ErrNoWritableMedium):
		outcome = "no_writable_medium"
	default:
		outcome = "error"
	}
	d := time.Since(start)
	if s.observe != nil {
		s.observe(op, used.String(), outcome, d)
	}
	if err != nil && outcome == "error" {
		s.logger.Warn(ctx, "content "+op+" failed", "medium", used.String(), "selected", m.Kind.String(), "err", err)
		return
	}
	s.logger.Debug(ctx, "content "+op, "medium", used.String(), "outcome", outcome, "duration_ms", d.Milliseconds())
}
