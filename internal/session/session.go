// Package session keeps one workbook store per uploaded file.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/internal/store"
)

// Session is one loaded workbook.
type Session struct {
	ID        string
	FileName  string
	Size      int64
	CreatedAt time.Time
	Store     *store.Store

	lastAccess time.Time
}

// Info is the listing view of a session.
type Info struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	SizeText   string    `json:"sizeText"`
	CreatedAt  time.Time `json:"createdAt"`
	LastAccess time.Time `json:"lastAccess"`
}

type Option func(*Manager)

// WithStoreOptions is applied to every store the manager creates.
func WithStoreOptions(opts ...store.Option) Option {
	return func(m *Manager) { m.storeOpts = append(m.storeOpts, opts...) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager expires sessions that were not accessed for ttl. A zero ttl
// keeps sessions until they are deleted.
type Manager struct {
	mu        sync.Mutex
	ttl       time.Duration
	sessions  map[string]*Session
	storeOpts []store.Option
	now       func() time.Time
}

func NewManager(ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		ttl:      ttl,
		sessions: map[string]*Session{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create loads src into a new store under a fresh id.
func (m *Manager) Create(ctx context.Context, src store.Source, fileName string, size int64) (*Session, error) {
	st := store.New(m.storeOpts...)
	if err := st.LoadWorkbook(ctx, src, fileName); err != nil {
		st.Close(ctx)
		return nil, fmt.Errorf("create session: %w", err)
	}

	now := m.now()
	sess := &Session{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Size:       size,
		CreatedAt:  now,
		Store:      st,
		lastAccess: now,
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	logger.InfoLog(ctx, "session %s opened for %s (%s)", sess.ID, fileName, humanize.Bytes(uint64(size)))
	return sess, nil
}

// Get returns a live session and marks it as accessed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok && m.expired(sess) {
		delete(m.sessions, id)
		m.mu.Unlock()
		sess.Store.Close(ctx)
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	sess.lastAccess = m.now()
	m.mu.Unlock()
	return sess, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	sess.Store.Close(ctx)
	return nil
}

// List returns live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		if m.expired(s) {
			continue
		}
		out = append(out, Info{
			ID:         s.ID,
			FileName:   s.FileName,
			Size:       s.Size,
			SizeText:   humanize.Bytes(uint64(s.Size)),
			CreatedAt:  s.CreatedAt,
			LastAccess: s.lastAccess,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Sweep closes expired sessions and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if m.expired(s) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Store.Close(ctx)
		logger.InfoLog(ctx, "session %s expired after %s idle", s.ID, humanize.RelTime(s.lastAccess, m.now(), "", ""))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Close closes every session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Store.Close(ctx)
	}
}

func (m *Manager) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.lastAccess) > m.ttl
}
