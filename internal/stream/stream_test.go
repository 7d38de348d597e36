package stream

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncwatch/internal/utils"
)

func newTestServer(t *testing.T, onDisk []byte) (*Server, string) {
	t.Helper()
	fs := afero.NewMemMapFs()
	path := "/data/movie.mp4"
	require.NoError(t, afero.WriteFile(fs, path, onDisk, 0644))
	return NewServer(fs, utils.NewLogger(false, io.Discard)), path
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestServeFileNoRange(t *testing.T) {
	data := pattern(1500)
	srv, path := newTestServer(t, data)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	rec := httptest.NewRecorder()
	srv.ServeFile(rec, req, path, 10000, "video/mp4")

	resp := rec.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	assert.Equal(t, "1500", resp.Header.Get("Content-Length"),
		"without a range only on-disk bytes are promised")
	assert.True(t, bytes.Equal(data, rec.Body.Bytes()))
}

func TestServeFilePartialRange(t *testing.T) {
	data := pattern(1500)
	srv, path := newTestServer(t, data)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=1000-1999")
	rec := httptest.NewRecorder()
	srv.ServeFile(rec, req, path, 10000, "video/mp4")

	resp := rec.Result()
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	// The declared total is the metadata size, the served tail is clamped
	// to what is on disk.
	assert.Equal(t, "bytes 1000-1499/10000", resp.Header.Get("Content-Range"))
	assert.Equal(t, "500", resp.Header.Get("Content-Length"))
	assert.True(t, bytes.Equal(data[1000:1500], rec.Body.Bytes()))
}

func TestServeFileOpenEndedRange(t *testing.T) {
	data := pattern(1500)
	srv, path := newTestServer(t, data)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=100-")
	rec := httptest.NewRecorder()
	srv.ServeFile(rec, req, path, 10000, "video/mp4")

	resp := rec.Result()
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "bytes 100-1499/10000", resp.Header.Get("Content-Range"))
	assert.True(t, bytes.Equal(data[100:1500], rec.Body.Bytes()))
}

func TestServeFileRangeBeyondDisk(t *testing.T) {
	srv, path := newTestServer(t, pattern(1500))

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=5000-6000")
	rec := httptest.NewRecorder()
	srv.ServeFile(rec, req, path, 10000, "video/mp4")

	resp := rec.Result()
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	assert.Equal(t, "bytes */10000", resp.Header.Get("Content-Range"))
}

func TestServeFileMalformedRange(t *testing.T) {
	srv, path := newTestServer(t, pattern(100))

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=badness")
	rec := httptest.NewRecorder()
	srv.ServeFile(rec, req, path, 0, "video/mp4")

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
}

func TestServeFileMissing(t *testing.T) {
	srv, _ := newTestServer(t, pattern(10))

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	rec := httptest.NewRecorder()
	srv.ServeFile(rec, req, "/data/nope.mp4", 0, "video/mp4")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeFileZeroExpectedTotalUsesDiskSize(t *testing.T) {
	data := pattern(400)
	srv, path := newTestServer(t, data)

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	req.Header.Set("Range", "bytes=0-")
	rec := httptest.NewRecorder()
	srv.ServeFile(rec, req, path, 0, "video/mp4")

	resp := rec.Result()
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "bytes 0-399/400", resp.Header.Get("Content-Range"))
	assert.True(t, bytes.Equal(data, rec.Body.Bytes()))
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		header     string
		start, end int64
		wantErr    bool
	}{
		{"bytes=0-499", 0, 499, false},
		{"bytes=500-", 500, 999, false},
		{"bytes=-", 0, 999, false},
		{"bytes=700-600", 0, 0, true},
		{"bytes=abc-def", 0, 0, true},
		{"bytes=", 0, 0, true},
	}

	for _, tt := range tests {
		start, end, err := parseRange(tt.header, 1000)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err, tt.header)
		assert.Equal(t, tt.start, start, tt.header)
		assert.Equal(t, tt.end, end, tt.header)
	}
}

func TestExists(t *testing.T) {
	srv, path := newTestServer(t, pattern(10))
	assert.True(t, srv.Exists(path))
	assert.False(t, srv.Exists("/data/other.mp4"))
}
