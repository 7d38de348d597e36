package bridge

import (
	"fmt"

	"syncwatch/internal/clients/engine"
)

// Snapshot is the consistent view of one session handed to API consumers.
// Field names follow the original bridge wire format.
type Snapshot struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Status             string           `json:"status"`
	Progress           float64          `json:"progress"`
	DownloadRate       int64            `json:"download_rate"`
	UploadRate         int64            `json:"upload_rate"`
	NumPeers           int              `json:"num_peers"`
	Files              []FileDescriptor `json:"files"`
	LargestFile        *FileDescriptor  `json:"largest_file"`
	TotalSize          int64            `json:"total_size"`
	HasMetadata        bool             `json:"has_metadata"`
	StreamingReady     bool             `json:"streaming_ready"`
	FileProgress       float64          `json:"file_progress"`
	StreamingThreshold float64          `json:"streaming_threshold"`
}

// statusNames maps engine-native state codes onto the closed reported
// vocabulary. Codes outside the table report "unknown" rather than error.
var statusNames = map[engine.State]string{
	engine.StateQueued:           "queued",
	engine.StateChecking:         "checking",
	engine.StateFetchingMetadata: "metadata",
	engine.StateDownloading:      "downloading",
	engine.StateFinished:         "finished",
	engine.StateSeeding:          "seeding",
	engine.StateAllocating:       "allocating",
}

func statusName(st engine.State) string {
	if name, ok := statusNames[st]; ok {
		return name
	}
	return "unknown"
}

// Snapshot assembles the current view of a session. Sessions that never
// obtained metadata within the grace period are evicted here, on
// observation: there is no background reaper.
func (r *Registry) Snapshot(id string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.handle == nil {
		return nil, fmt.Errorf("%w: handle not attached yet", ErrEngineFailure)
	}

	st, err := s.handle.Status()
	if err != nil {
		r.logger.Error("Status check failed for", id, ":", err)
		r.evictLocked(s, false)
		return nil, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}

	if !st.HasMetadata {
		if age := r.now().Sub(s.addedAt); age > r.StuckAfter {
			r.logger.Warn("Removing stuck torrent", id, "(no metadata after", age, ")")
			r.evictLocked(s, false)
			return nil, fmt.Errorf("%w (waited %s)", ErrStuck, age.Round(0))
		}
	}

	snap := &Snapshot{
		ID:                 id,
		Name:               s.displayName,
		Status:             statusName(st.State),
		Progress:           st.Progress,
		DownloadRate:       st.DownloadRate,
		UploadRate:         st.UploadRate,
		NumPeers:           st.NumPeers,
		Files:              s.files,
		LargestFile:        s.primary,
		TotalSize:          s.totalSize,
		HasMetadata:        st.HasMetadata,
		StreamingThreshold: thresholdDefault,
	}
	if snap.Name == "" {
		snap.Name = "Unknown"
	}

	if s.primary != nil {
		snap.StreamingReady = r.isReadyLocked(s, -1)
		snap.StreamingThreshold = ThresholdFor(s.primary.Path)
		if idx := s.primary.Index; idx < len(st.FileProgress) && s.primary.Size > 0 {
			snap.FileProgress = float64(st.FileProgress[idx]) / float64(s.primary.Size)
		}
	}

	return snap, nil
}

// List snapshots every session, skipping entries that error (and letting
// Snapshot's lazy eviction reap the stuck ones along the way).
func (r *Registry) List() []*Snapshot {
	ids := r.IDs()

	snaps := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := r.Snapshot(id)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps
}

// StreamTarget locates a session file for the progressive server.
type StreamTarget struct {
	// Path is relative to the registry's download root.
	Path        string
	ContentType string

	// ExpectedTotal is the declared final size when the target is the
	// primary file, 0 otherwise (non-primary files stream at their
	// current on-disk size).
	ExpectedTotal int64

	Ready     bool
	Progress  float64
	Threshold float64
}

// StreamTarget resolves a file index (primary when negative) to a
// streamable target with its readiness verdict.
func (r *Registry) StreamTarget(id string, fileIndex int) (*StreamTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	if fileIndex < 0 {
		fileIndex = s.primaryIndex()
	}
	if fileIndex < 0 || fileIndex >= len(s.files) {
		return nil, ErrNotFound
	}

	f := s.files[fileIndex]
	target := &StreamTarget{
		Path:        f.Path,
		ContentType: ContentTypeFor(f.Path),
		Threshold:   ThresholdFor(f.Path),
		Ready:       r.isReadyLocked(s, fileIndex),
	}

	if fileIndex == s.primaryIndex() {
		target.ExpectedTotal = f.Size
	}

	if s.handle != nil && f.Size > 0 {
		if st, err := s.handle.Status(); err == nil && fileIndex < len(st.FileProgress) {
			target.Progress = float64(st.FileProgress[fileIndex]) / float64(f.Size)
		}
	}

	return target, nil
}
