package contentstore

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/brilliantaksan/brilliantaksan-web/internal/log"
	"github.com/brilliantaksan/brilliantaksan-web/internal/sitecontent"
)

// Source reports which copy a render used.
type Source string

const (
	SourceLive     Source = "live"
	SourceLastGood Source = "last-good"
	SourceBundled  Source = "bundled"
)

// Reader is the read half of a Store.
type Reader interface {
	Read(ctx context.Context) (Document, error)
}

// Snapshot is the last document read or written successfully.
type Snapshot struct {
	Content  sitecontent.SiteContent
	Revision string
	Medium   Kind
	LoadedAt time.Time
}

// Manager resolves the document for page rendering: the live store first,
// then the last good snapshot, then the bundled copy. Reads of the snapshot
// are lock free.
type Manager struct {
	store    Reader
	logger   log.Logger
	active   atomic.Pointer[Snapshot]
	served   atomic.Bool
	onSource func(Source)
	now      func() time.Time
}

type ManagerOption func(*Manager)

// WithSourceObserver is called with the source of every Resolve.
func WithSourceObserver(fn func(Source)) ManagerOption {
	return func(m *Manager) { m.onSource = fn }
}

func NewManager(store Reader, logger log.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	m := &Manager{store: store, logger: logger, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Remember records doc as the last good snapshot.
func (m *Manager) Remember(doc Document) {
	m.active.Store(&Snapshot{
		Content:  doc.Content,
		Revision: doc.Revision,
		Medium:   doc.Medium,
		LoadedAt: m.now().UTC(),
	})
}

// Get returns the last good snapshot.
func (m *Manager) Get() (*Snapshot, bool) {
	s := m.active.Load()
	return s, s != nil
}

// Prime performs the startup read so readiness reflects the live store.
func (m *Manager) Prime(ctx context.Context) error {
	doc, err := m.store.Read(ctx)
	if err != nil {
		return err
	}
	m.Remember(doc)
	return nil
}

// Resolve never fails while the bundled copy decodes.
func (m *Manager) Resolve(ctx context.Context) (sitecontent.SiteContent, Source, error) {
	doc, err := m.store.Read(ctx)
	if err == nil {
		m.Remember(doc)
		return m.report(doc.Content, SourceLive)
	}

	if snap, ok := m.Get(); ok {
		m.logger.Warn(ctx, "content read failed, serving last good snapshot",
			"err", err,
			"snapshot_age", m.now().Sub(snap.LoadedAt).Round(time.Second).String(),
		)
		return m.report(snap.Content, SourceLastGood)
	}

	m.logger.Error(ctx, err, "content read failed with no snapshot, serving bundled copy")
	b, berr := sitecontent.Bundled()
	if berr != nil {
		return sitecontent.SiteContent{}, SourceBundled, errors.Join(err, berr)
	}
	return m.report(b, SourceBundled)
}

func (m *Manager) report(doc sitecontent.SiteContent, src Source) (sitecontent.SiteContent, Source, error) {
	m.served.Store(true)
	if m.onSource != nil {
		m.onSource(src)
	}
	return doc, src, nil
}

// ReadyErr returns an error until some source has produced a document.
func (m *Manager) ReadyErr() error {
	if _, ok := m.Get(); !ok && !m.served.Load() {
		return errors.New("content: no document loaded yet")
	}
	return nil
}

// ContentRevision is the revision of the last good snapshot, "" off git.
func (m *Manager) ContentRevision() string {
	if s, ok := m.Get(); ok {
		return s.Revision
	}
	return ""
}

// ContentMedium names the medium the last good snapshot came from.
func (m *Manager) ContentMedium() string {
	if s, ok := m.Get(); ok {
		return s.Medium.String()
	}
	return ""
}
