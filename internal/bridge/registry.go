package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"syncwatch/internal/clients/engine"
	"syncwatch/internal/utils"
)

// Registry owns the id→session map and the temp download root. Every other
// component reaches sessions through it; a fresh instance per test replaces
// the original's process-global state.
type Registry struct {
	engine  engine.Engine
	dataDir string
	logger  *utils.Logger

	// MetadataTimeout bounds the acquisition wait, PollInterval is the
	// status poll cadence during it, StuckAfter is the lazy-eviction
	// grace period for sessions that never got metadata.
	MetadataTimeout time.Duration
	PollInterval    time.Duration
	StuckAfter      time.Duration

	// OnStreamReady fires once per session, when its readiness threshold
	// is first crossed.
	OnStreamReady func(displayName string)

	now   func() time.Time
	sleep func(time.Duration)

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRegistry(eng engine.Engine, dataDir string, logger *utils.Logger) *Registry {
	return &Registry{
		engine:          eng,
		dataDir:         dataDir,
		logger:          logger,
		MetadataTimeout: 30 * time.Second,
		PollInterval:    time.Second,
		StuckAfter:      2 * time.Minute,
		now:             time.Now,
		sleep:           time.Sleep,
		sessions:        make(map[string]*session),
	}
}

// DataDir is the on-disk root the engine downloads into.
func (r *Registry) DataDir() string {
	return r.dataDir
}

// Add registers a new download for the given magnet URI and waits for its
// metadata. If the same source is already tracked and healthy, the new id
// becomes an alias of the existing session instead of starting a second
// download; an unhealthy duplicate is evicted first and replaced.
func (r *Registry) Add(src string) (string, error) {
	id := uuid.New().String()

	r.mu.Lock()
	if existing := r.findBySourceLocked(src); existing != nil {
		if r.healthyLocked(existing) {
			existing.ids[id] = struct{}{}
			r.sessions[id] = existing
			r.mu.Unlock()
			r.logger.Info("Reusing healthy torrent for", id)
			return id, nil
		}
		r.logger.Warn("Evicting stuck duplicate before re-adding:", existing.displayName)
		r.evictLocked(existing, false)
	}

	s := &session{
		source:  src,
		state:   StateAcquiringMetadata,
		addedAt: r.now(),
		ids:     map[string]struct{}{id: {}},
	}
	r.sessions[id] = s
	r.mu.Unlock()

	handle, err := r.engine.Add(src)
	if err != nil {
		r.evict(s, false)
		return "", fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	r.mu.Lock()
	s.handle = handle
	r.mu.Unlock()

	if err := r.awaitMetadata(id, s); err != nil {
		r.logger.Warn("Cleaning up failed torrent", id, ":", err)
		r.evict(s, false)
		return "", err
	}

	r.prioritize(s)
	return id, nil
}

// awaitMetadata polls the handle until metadata is observed or the
// deadline passes. The loop re-checks registration each round so a
// concurrent Remove aborts the wait.
func (r *Registry) awaitMetadata(id string, s *session) error {
	deadline := r.now().Add(r.MetadataTimeout)

	for {
		r.mu.Lock()
		_, registered := r.sessions[id]
		r.mu.Unlock()
		if !registered {
			return fmt.Errorf("%w: session removed during metadata wait", ErrEngineFailure)
		}

		st, err := s.handle.Status()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEngineFailure, err)
		}

		if st.HasMetadata {
			md, err := s.handle.Metadata()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrEngineFailure, err)
			}

			files, primary := buildFiles(md)

			r.mu.Lock()
			s.files = files
			s.primary = primary
			s.totalSize = md.TotalSize
			s.displayName = md.Name
			s.state = StateReady
			r.mu.Unlock()

			r.logger.Info("Metadata received for", id, ":", md.Name)
			return nil
		}

		if r.now().After(deadline) {
			return fmt.Errorf("%w (%s)", ErrMetadataTimeout, r.MetadataTimeout)
		}
		r.sleep(r.PollInterval)
	}
}

// prioritize front-loads the primary file: normal priority everywhere,
// highest on the streaming target, then sequential fetch order. Sources
// with no video file keep the engine's defaults.
func (r *Registry) prioritize(s *session) {
	r.mu.Lock()
	primary := s.primary
	files := s.files
	r.mu.Unlock()

	if primary == nil {
		r.logger.Info("No video file in", s.displayName, "- leaving default priorities")
		return
	}

	for i := range files {
		prio := engine.PriorityNormal
		if i == primary.Index {
			prio = engine.PriorityHigh
		}
		if err := s.handle.SetFilePriority(i, prio); err != nil {
			r.logger.Warn("Failed to set file priority:", err)
		}
	}
	if err := s.handle.SetSequential(primary.Index); err != nil {
		r.logger.Warn("Failed to enable sequential download:", err)
	}

	r.logger.Info("Streaming setup complete for", s.displayName, "->", primary.Path)
}

func (r *Registry) findBySourceLocked(src string) *session {
	for _, s := range r.sessions {
		if s.source == src {
			return s
		}
	}
	return nil
}

// healthyLocked reports whether an existing session is worth aliasing:
// metadata present and actual download progress.
func (r *Registry) healthyLocked(s *session) bool {
	if s.state != StateReady || s.handle == nil {
		return false
	}
	st, err := s.handle.Status()
	return err == nil && st.HasMetadata && st.Progress > 0
}

// evictLocked tears the session down: drops the handle and unregisters
// every alias. Caller holds the lock.
func (r *Registry) evictLocked(s *session, deleteFiles bool) {
	if s.handle != nil && s.state != StateRemoved {
		if err := s.handle.Drop(deleteFiles); err != nil {
			r.logger.Warn("Failed to drop torrent handle:", err)
		}
	}
	s.state = StateRemoved
	for id := range s.ids {
		delete(r.sessions, id)
	}
	s.ids = map[string]struct{}{}
}

func (r *Registry) evict(s *session, deleteFiles bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked(s, deleteFiles)
}

// Remove severs one id. The handle is dropped, and files deleted if
// requested, only when the last alias goes away; removing one alias never
// invalidates the other.
func (r *Registry) Remove(id string, deleteFiles bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}

	delete(r.sessions, id)
	delete(s.ids, id)

	if len(s.ids) > 0 {
		r.logger.Info("Removed alias", id, "- handle kept alive by", len(s.ids), "other id(s)")
		return nil
	}

	if s.handle != nil {
		if err := s.handle.Drop(deleteFiles); err != nil {
			r.logger.Warn("Failed to drop torrent handle:", err)
		}
	}
	s.state = StateRemoved
	r.logger.Info("Removed torrent:", id)
	return nil
}

// IDs lists every registered id, aliases included.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Clear removes every session without deleting files; leftover data can be
// picked up again through the dedup path.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[*session]struct{})
	for _, s := range r.sessions {
		seen[s] = struct{}{}
	}
	for s := range seen {
		r.evictLocked(s, false)
	}

	r.logger.Info("Cleared", len(seen), "torrents from session registry")
	return len(seen)
}

// CleanupOlderThan removes, with file deletion, every session older than
// maxAge. Returns the number of sessions removed.
func (r *Registry) CleanupOlderThan(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxAge)
	var stale []*session
	seen := make(map[*session]struct{})
	for _, s := range r.sessions {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if s.addedAt.Before(cutoff) || s.addedAt.Equal(cutoff) {
			stale = append(stale, s)
		}
	}

	for _, s := range stale {
		r.logger.Info("Cleaning up old torrent:", s.displayName)
		r.evictLocked(s, true)
	}
	return len(stale)
}

// IsReady reports whether the given file (primary when fileIndex < 0) has
// enough leading data for safe playback. Once a session reports ready it
// stays ready.
func (r *Registry) IsReady(id string, fileIndex int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	return r.isReadyLocked(s, fileIndex)
}

func (r *Registry) isReadyLocked(s *session, fileIndex int) bool {
	if s.streamingReady {
		return true
	}

	if fileIndex < 0 {
		fileIndex = s.primaryIndex()
	}
	if fileIndex < 0 || fileIndex >= len(s.files) || s.handle == nil {
		return false
	}

	st, err := s.handle.Status()
	if err != nil || fileIndex >= len(st.FileProgress) {
		return false
	}

	f := s.files[fileIndex]
	if !readyBytes(f.Path, st.FileProgress[fileIndex], f.Size) {
		return false
	}

	s.streamingReady = true
	r.logger.Info("Streaming ready:", s.displayName, "file:", f.Path)
	if r.OnStreamReady != nil {
		go r.OnStreamReady(s.displayName)
	}
	return true
}
