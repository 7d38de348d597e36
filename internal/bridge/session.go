package bridge

import (
	"path"
	"strings"
	"time"

	"syncwatch/internal/clients/engine"
)

// SessionState is the externally observable lifecycle of a session.
type SessionState string

const (
	StateAcquiringMetadata SessionState = "acquiring_metadata"
	StateReady             SessionState = "ready"
	StateFailed            SessionState = "failed"
	StateRemoved           SessionState = "removed"
)

// FileDescriptor describes one file of a source. Immutable once built.
type FileDescriptor struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	IsVideo bool   `json:"is_video"`
}

// session is one tracked download. Multiple registry ids may alias the
// same session; the ids set is its owner-set and the handle is dropped
// only when the set empties.
type session struct {
	source      string
	handle      engine.Handle
	state       SessionState
	files       []FileDescriptor
	primary     *FileDescriptor
	totalSize   int64
	displayName string
	addedAt     time.Time

	// streamingReady is sticky: once the readiness threshold is crossed it
	// never resets, so playback availability cannot flap.
	streamingReady bool

	ids map[string]struct{}
}

func (s *session) primaryIndex() int {
	if s.primary == nil {
		return -1
	}
	return s.primary.Index
}

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".avi":  {},
	".mov":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
	".m4v":  {},
}

func isVideoFile(p string) bool {
	_, ok := videoExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".m4v":  "video/x-m4v",
}

// ContentTypeFor resolves the Content-Type for a file path. Unknown
// extensions fall back to video/mp4, which players probe anyway.
func ContentTypeFor(p string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(p))]; ok {
		return ct
	}
	return "video/mp4"
}

// buildFiles classifies the engine's file list and selects the primary
// streaming target: the largest video file, first index winning ties.
func buildFiles(md engine.Metadata) ([]FileDescriptor, *FileDescriptor) {
	files := make([]FileDescriptor, len(md.Files))
	var primary *FileDescriptor

	for i, f := range md.Files {
		files[i] = FileDescriptor{
			Index:   i,
			Path:    f.Path,
			Size:    f.Size,
			IsVideo: isVideoFile(f.Path),
		}
	}
	for i := range files {
		if !files[i].IsVideo {
			continue
		}
		if primary == nil || files[i].Size > primary.Size {
			primary = &files[i]
		}
	}
	return files, primary
}
