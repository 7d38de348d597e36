package engine

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const qbMagnet = "magnet:?xt=urn:btih:c9e15763f722f23e98a29decdfae341b98d53056&dn=bbb"

// qbServer fakes just enough of the qBittorrent Web API for the engine.
type qbServer struct {
	mu        sync.Mutex
	forms     map[string][]url.Values
	infoJSON  string
	filesJSON string
	seqDL     bool
}

func newQBServer() *qbServer {
	return &qbServer{
		forms: make(map[string][]url.Values),
		infoJSON: `[{"name":"Big Buck Bunny","size":1000,"progress":0.25,
			"dlspeed":512,"upspeed":64,"num_seeds":4,"num_leechs":2,
			"state":"downloading","seq_dl":false}]`,
		filesJSON: `[{"name":"bbb/movie.mp4","size":800,"progress":0.5},
			{"name":"bbb/poster.jpg","size":200,"progress":1.0}]`,
	}
}

func (s *qbServer) recordForm(r *http.Request) {
	r.ParseForm()
	s.mu.Lock()
	s.forms[r.URL.Path] = append(s.forms[r.URL.Path], r.PostForm)
	s.mu.Unlock()
}

func (s *qbServer) formCalls(path string) []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forms[path]
}

func (s *qbServer) setInfo(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infoJSON = body
}

func (s *qbServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", func(w http.ResponseWriter, r *http.Request) {
		s.recordForm(r)
		http.SetCookie(w, &http.Cookie{Name: "SID", Value: "test-session"})
		w.Write([]byte("Ok."))
	})
	mux.HandleFunc("/api/v2/torrents/info", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		body := s.infoJSON
		s.mu.Unlock()
		w.Write([]byte(body))
	})
	mux.HandleFunc("/api/v2/torrents/files", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		body := s.filesJSON
		s.mu.Unlock()
		w.Write([]byte(body))
	})
	record := func(path string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			s.recordForm(r)
		})
	}
	record("/api/v2/torrents/add")
	record("/api/v2/torrents/filePrio")
	record("/api/v2/torrents/toggleSequentialDownload")
	record("/api/v2/torrents/delete")
	return mux
}

func newQBEngine(t *testing.T) (*QBittorrentEngine, *qbServer) {
	t.Helper()
	qb := newQBServer()
	srv := httptest.NewServer(qb.handler())
	t.Cleanup(srv.Close)
	return NewQBittorrentEngine(srv.URL, "admin", "adminadmin", "/downloads"), qb
}

func TestQBittorrentAdd(t *testing.T) {
	eng, qb := newQBEngine(t)

	handle, err := eng.Add(qbMagnet)
	require.NoError(t, err)
	require.NotNil(t, handle)

	adds := qb.formCalls("/api/v2/torrents/add")
	require.Len(t, adds, 1)
	assert.Equal(t, qbMagnet, adds[0].Get("urls"))
	assert.Equal(t, "/downloads", adds[0].Get("savepath"))

	logins := qb.formCalls("/api/v2/auth/login")
	require.NotEmpty(t, logins)
	assert.Equal(t, "admin", logins[0].Get("username"))
}

func TestQBittorrentAddRejectsNonMagnet(t *testing.T) {
	eng, _ := newQBEngine(t)
	_, err := eng.Add("http://example.com/file.torrent")
	assert.Error(t, err)
}

func TestQBittorrentStatus(t *testing.T) {
	eng, _ := newQBEngine(t)
	handle, err := eng.Add(qbMagnet)
	require.NoError(t, err)

	st, err := handle.Status()
	require.NoError(t, err)
	assert.True(t, st.HasMetadata)
	assert.Equal(t, StateDownloading, st.State)
	assert.Equal(t, 0.25, st.Progress)
	assert.Equal(t, int64(512), st.DownloadRate)
	assert.Equal(t, 6, st.NumPeers)
	require.Len(t, st.FileProgress, 2)
	assert.Equal(t, int64(400), st.FileProgress[0])
	assert.Equal(t, int64(200), st.FileProgress[1])
}

func TestQBittorrentStatusDuringMetadataFetch(t *testing.T) {
	eng, qb := newQBEngine(t)
	qb.setInfo(`[{"name":"","size":0,"state":"metaDL"}]`)

	handle, err := eng.Add(qbMagnet)
	require.NoError(t, err)

	st, err := handle.Status()
	require.NoError(t, err)
	assert.False(t, st.HasMetadata)
	assert.Equal(t, StateFetchingMetadata, st.State)
	assert.Empty(t, st.FileProgress)
}

func TestQBittorrentMetadata(t *testing.T) {
	eng, _ := newQBEngine(t)
	handle, err := eng.Add(qbMagnet)
	require.NoError(t, err)

	md, err := handle.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "Big Buck Bunny", md.Name)
	assert.Equal(t, int64(1000), md.TotalSize)
	require.Len(t, md.Files, 2)
	assert.Equal(t, "bbb/movie.mp4", md.Files[0].Path)
	assert.Equal(t, int64(800), md.Files[0].Size)
}

func TestQBittorrentSetFilePriority(t *testing.T) {
	eng, qb := newQBEngine(t)
	handle, err := eng.Add(qbMagnet)
	require.NoError(t, err)

	require.NoError(t, handle.SetFilePriority(0, PriorityHigh))
	require.NoError(t, handle.SetFilePriority(1, PrioritySkip))

	calls := qb.formCalls("/api/v2/torrents/filePrio")
	require.Len(t, calls, 2)
	assert.Equal(t, "7", calls[0].Get("priority"))
	assert.Equal(t, "0", calls[0].Get("id"))
	assert.Equal(t, "0", calls[1].Get("priority"))
	assert.Equal(t, "1", calls[1].Get("id"))
}

func TestQBittorrentSetSequentialTogglesOnce(t *testing.T) {
	eng, qb := newQBEngine(t)
	handle, err := eng.Add(qbMagnet)
	require.NoError(t, err)

	require.NoError(t, handle.SetSequential(0))
	assert.Len(t, qb.formCalls("/api/v2/torrents/toggleSequentialDownload"), 1)

	// Already sequential: the toggle must not be flipped back off.
	qb.setInfo(`[{"name":"Big Buck Bunny","size":1000,"state":"downloading","seq_dl":true}]`)
	require.NoError(t, handle.SetSequential(0))
	assert.Len(t, qb.formCalls("/api/v2/torrents/toggleSequentialDownload"), 1)
}

func TestQBittorrentDrop(t *testing.T) {
	eng, qb := newQBEngine(t)
	handle, err := eng.Add(qbMagnet)
	require.NoError(t, err)

	require.NoError(t, handle.Drop(true))

	calls := qb.formCalls("/api/v2/torrents/delete")
	require.Len(t, calls, 1)
	assert.Equal(t, "true", calls[0].Get("deleteFiles"))
	assert.Equal(t, "c9e15763f722f23e98a29decdfae341b98d53056", calls[0].Get("hashes"))
}
