package studio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/providers/image"
	"studio/internal/workflow"
)

// BlobStore backs preview handles and can drop a whole session's blobs at once.
type BlobStore interface {
	workflow.PreviewStore
	Purge(ctx context.Context, prefix string) error
}

// Options configures a Manager.
type Options struct {
	Generator          image.Generator
	Store              BlobStore
	Usage              domain.UsageRepository
	HeadshotCandidates int
	IdleTTL            time.Duration
	Logger             zerolog.Logger
	Now                func() time.Time
}

// Manager holds the live sessions of the process.
type Manager struct {
	opts      Options
	generator image.Generator
	specs     []PanelSpec

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = time.Hour
	}
	return &Manager{
		opts:      opts,
		generator: Metered(opts.Generator, opts.Usage, opts.Logger),
		specs:     PanelSpecs(opts.HeadshotCandidates),
		sessions:  make(map[string]*Session),
	}
}

// Create opens a session, optionally seeded with a current image.
func (m *Manager) Create(current *image.Payload) *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	now := m.opts.Now()
	s := &Session{
		ID:         id,
		CreatedAt:  now.UTC(),
		specs:      make(map[image.WorkflowMode]PanelSpec, len(m.specs)),
		panels:     make(map[image.WorkflowMode]*workflow.Controller, len(m.specs)),
		hub:        NewHub(),
		logger:     m.opts.Logger.With().Str("session_id", id).Logger(),
		now:        m.opts.Now,
		ctx:        ctx,
		cancel:     cancel,
		lastActive: now,
	}
	if current != nil {
		cur := *current
		s.current = &cur
		s.version = 1
	}
	for _, spec := range m.specs {
		s.specs[spec.Mode] = spec
		s.order = append(s.order, spec.Mode)
		s.panels[spec.Mode] = workflow.NewController(workflow.Config{
			Mode:             spec.Mode,
			Constraint:       spec.Constraint,
			ConsumeOnSuccess: spec.ConsumeOnSuccess,
			UsesCurrentImage: spec.RequiresCurrentImage,
			Quantity:         spec.Quantity,
			Generator:        m.generator,
			Previews:         m.opts.Store,
			Scope:            id + "/" + string(spec.Mode),
			Shell:            s,
			Precondition:     spec.precondition(),
			Logger:           s.logger,
			OnChange:         s.publishPanel,
		})
	}

	m.mu.Lock()
	m.sessions[id] = s
	total := len(m.sessions)
	m.mu.Unlock()
	s.logger.Info().Int("sessions", total).Msg("session created")
	return s
}

// Get returns a live session and records activity on it.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.Touch()
	return s, nil
}

// Close tears a session down and drops its preview blobs.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	m.teardown(ctx, s, "closed")
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle longer than the TTL. Sessions with a call in
// flight are left for a later sweep.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.opts.Now().Add(-m.opts.IdleTTL)
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) && !s.Busy() {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.teardown(ctx, s, "idle")
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.opts.IdleTTL / 4
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(ctx); n > 0 {
				m.opts.Logger.Info().Int("closed", n).Int("remaining", m.Len()).Msg("idle sessions swept")
			}
		}
	}
}

// Shutdown closes every session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range all {
		m.teardown(ctx, s, "shutdown")
	}
}

func (m *Manager) teardown(ctx context.Context, s *Session, reason string) {
	if !s.close(ctx) {
		return
	}
	if m.opts.Store != nil {
		if err := m.opts.Store.Purge(context.WithoutCancel(ctx), "previews/"+s.ID); err != nil {
			s.logger.Warn().Err(err).Msg("purge session previews")
		}
	}
	s.logger.Info().Str("reason", reason).Msg("session closed")
}
