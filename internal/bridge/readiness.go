package bridge

import (
	"path"
	"strings"
)

const (
	// thresholdMKV is higher because matroska headers need more leading
	// data before players can parse them reliably.
	thresholdMKV     = 0.12
	thresholdMP4     = 0.08
	thresholdDefault = 0.10

	minStreamBytes = 10 * 1024 * 1024
)

// ThresholdFor returns the fraction of a file that must be downloaded
// before progressive playback is considered safe.
func ThresholdFor(p string) float64 {
	switch strings.ToLower(path.Ext(p)) {
	case ".mkv":
		return thresholdMKV
	case ".mp4", ".webm":
		return thresholdMP4
	default:
		return thresholdDefault
	}
}

// readyBytes reports whether downloaded bytes of a file satisfy both the
// per-extension fraction and the absolute floor. The floor guards against
// the percentage being met by a vanishingly small file: at least 10 MiB,
// or 5% of the file for files smaller than 200 MiB.
func readyBytes(filePath string, downloaded, size int64) bool {
	if size <= 0 {
		return false
	}

	progress := float64(downloaded) / float64(size)

	minBytes := float64(minStreamBytes)
	if floor := float64(size) * 0.05; floor < minBytes {
		minBytes = floor
	}

	return progress >= ThresholdFor(filePath) && float64(downloaded) >= minBytes
}
