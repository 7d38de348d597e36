package bridge

import "errors"

var (
	// ErrNotFound means no session is registered under the given id.
	ErrNotFound = errors.New("torrent not found")

	// ErrMetadataTimeout means the engine never produced metadata within
	// the acquisition deadline.
	ErrMetadataTimeout = errors.New("timed out waiting for torrent metadata")

	// ErrEngineFailure means a handle became invalid or an engine call
	// failed mid-operation.
	ErrEngineFailure = errors.New("download engine failure")

	// ErrStuck marks a session that was lazily evicted because it had no
	// metadata after the grace period.
	ErrStuck = errors.New("torrent stuck: no metadata within grace period")

	// ErrNotReady means the requested file has not crossed its streaming
	// threshold yet.
	ErrNotReady = errors.New("not enough data for streaming")

	// ErrFileNotOnDisk means the requested file has not been created by
	// the engine yet.
	ErrFileNotOnDisk = errors.New("file not yet downloaded")

	// ErrRangeNotSatisfiable means the requested range starts beyond the
	// bytes currently on disk.
	ErrRangeNotSatisfiable = errors.New("requested range not yet downloaded")
)
