package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncwatch/internal/clients/engine"
)

func TestBuildFilesPicksLargestVideo(t *testing.T) {
	files, primary := buildFiles(engine.Metadata{
		Name: "pack",
		Files: []engine.FileInfo{
			{Path: "pack/readme.txt", Size: 900 * mib},
			{Path: "pack/episode1.mkv", Size: 300 * mib},
			{Path: "pack/episode2.mkv", Size: 450 * mib},
			{Path: "pack/sample.mp4", Size: 30 * mib},
		},
	})

	require.Len(t, files, 4)
	require.NotNil(t, primary)
	assert.Equal(t, 2, primary.Index, "largest video wins over a larger non-video")
	assert.Equal(t, "pack/episode2.mkv", primary.Path)
	assert.False(t, files[0].IsVideo)
	assert.True(t, files[1].IsVideo)
}

func TestBuildFilesFirstIndexWinsTies(t *testing.T) {
	_, primary := buildFiles(engine.Metadata{
		Files: []engine.FileInfo{
			{Path: "a.mp4", Size: 100 * mib},
			{Path: "b.mp4", Size: 100 * mib},
		},
	})
	require.NotNil(t, primary)
	assert.Equal(t, 0, primary.Index)
}

func TestBuildFilesNoVideo(t *testing.T) {
	files, primary := buildFiles(engine.Metadata{
		Files: []engine.FileInfo{{Path: "book.pdf", Size: 5 * mib}},
	})
	assert.Len(t, files, 1)
	assert.Nil(t, primary)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/x-matroska", ContentTypeFor("show.mkv"))
	assert.Equal(t, "video/webm", ContentTypeFor("clip.WEBM"))
	assert.Equal(t, "video/mp4", ContentTypeFor("odd.xyz"), "unknown extensions fall back to mp4")
}
