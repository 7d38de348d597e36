package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdFor(t *testing.T) {
	assert.Equal(t, 0.12, ThresholdFor("movie.mkv"))
	assert.Equal(t, 0.12, ThresholdFor("Movie.MKV"))
	assert.Equal(t, 0.08, ThresholdFor("movie.mp4"))
	assert.Equal(t, 0.08, ThresholdFor("movie.webm"))
	assert.Equal(t, 0.10, ThresholdFor("movie.avi"))
	assert.Equal(t, 0.10, ThresholdFor("no-extension"))
}

func TestReadyBytes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		downloaded int64
		size       int64
		want       bool
	}{
		{"mp4 under fraction", "a.mp4", 7 * mib, 100 * mib, false},
		{"mp4 over fraction and floor", "a.mp4", 9 * mib, 100 * mib, true},
		{"mkv needs more lead", "a.mkv", 9 * mib, 100 * mib, false},
		{"mkv over its threshold", "a.mkv", 13 * mib, 100 * mib, true},
		{"small file uses 5 percent floor", "a.mp4", 2 * mib, 20 * mib, true},
		{"large file fraction dominates floor", "a.mp4", 11 * mib, 1024 * mib, false},
		{"large file ready", "a.mp4", 90 * mib, 1024 * mib, true},
		{"zero size never ready", "a.mp4", 0, 0, false},
		{"complete file", "a.avi", 50 * mib, 50 * mib, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readyBytes(tt.path, tt.downloaded, tt.size))
		})
	}
}
