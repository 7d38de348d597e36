// Package engine abstracts the download engine that actually moves bytes.
// The bridge only ever talks to handles: add a source, poll its status, set
// file priorities, switch it to sequential fetch, drop it. Backends are
// selected by config, like the torrent clients in similar services.
package engine

// State is a backend-native state code. The set is open: backends may
// report codes the status reporter has no name for, and those are shown
// as "unknown" rather than rejected.
type State int

const (
	StateUnknown State = iota
	StateQueued
	StateChecking
	StateFetchingMetadata
	StateDownloading
	StateFinished
	StateSeeding
	StateAllocating
)

// Priority for a single file within a source.
type Priority int

const (
	PrioritySkip Priority = iota
	PriorityNormal
	PriorityHigh
)

// FileInfo describes one file of a source, as reported by the engine.
type FileInfo struct {
	Path string
	Size int64
}

// Metadata is the source's aggregate metadata, valid once HasMetadata.
type Metadata struct {
	Name      string
	TotalSize int64
	Files     []FileInfo
}

// HandleStatus is a point-in-time view of one download.
type HandleStatus struct {
	HasMetadata  bool
	State        State
	Progress     float64
	DownloadRate int64
	UploadRate   int64
	NumPeers     int
	// FileProgress holds downloaded bytes per file, indexed like
	// Metadata.Files. Empty before metadata arrives.
	FileProgress []int64
}

// Handle is the engine's live reference to one in-progress download.
// Calls are expected to be fast; the engine does its real I/O on its own
// workers.
type Handle interface {
	Status() (HandleStatus, error)
	Metadata() (Metadata, error)
	SetFilePriority(index int, prio Priority) error
	// SetSequential switches the given file to front-to-back fetch order,
	// the precondition for progressive playback.
	SetSequential(index int) error
	Drop(deleteFiles bool) error
}

// Engine creates handles from source descriptors (magnet URIs).
type Engine interface {
	Add(sourceDescriptor string) (Handle, error)
	Close() error
}
