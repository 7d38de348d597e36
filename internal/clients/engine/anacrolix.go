package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
)

// AnacrolixEngine runs downloads in-process with anacrolix/torrent.
type AnacrolixEngine struct {
	client  *torrent.Client
	dataDir string
	seed    bool
}

type anacrolixHandle struct {
	t       *torrent.Torrent
	dataDir string
	seed    bool

	mu          sync.Mutex
	lastRead    int64
	lastWritten int64
	lastSample  time.Time
	dlRate      int64
	ulRate      int64
}

func NewAnacrolixEngine(dataDir string, maxPeers int, seed bool) (*AnacrolixEngine, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	cfg := torrent.NewDefaultClientConfig()
	cfg.DataDir = dataDir
	cfg.Seed = seed
	if maxPeers > 0 {
		cfg.EstablishedConnsPerTorrent = maxPeers
	}

	client, err := torrent.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create torrent client: %w", err)
	}

	return &AnacrolixEngine{client: client, dataDir: dataDir, seed: seed}, nil
}

func (e *AnacrolixEngine) Add(src string) (Handle, error) {
	var t *torrent.Torrent
	var err error

	if _, statErr := os.Stat(src); statErr == nil {
		t, err = e.client.AddTorrentFromFile(src)
	} else {
		t, err = e.client.AddMagnet(src)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add torrent: %w", err)
	}

	return &anacrolixHandle{t: t, dataDir: e.dataDir, seed: e.seed, lastSample: time.Now()}, nil
}

func (e *AnacrolixEngine) Close() error {
	e.client.Close()
	return nil
}

func (h *anacrolixHandle) hasInfo() bool {
	select {
	case <-h.t.GotInfo():
		return true
	default:
		return false
	}
}

func (h *anacrolixHandle) Status() (HandleStatus, error) {
	stats := h.t.Stats()

	st := HandleStatus{
		HasMetadata: h.hasInfo(),
		NumPeers:    stats.ActivePeers,
	}

	h.sampleRates(stats.BytesReadData.Int64(), stats.BytesWrittenData.Int64())
	st.DownloadRate = h.dlRate
	st.UploadRate = h.ulRate

	if !st.HasMetadata {
		st.State = StateFetchingMetadata
		return st, nil
	}

	length := h.t.Length()
	completed := h.t.BytesCompleted()
	if length > 0 {
		st.Progress = float64(completed) / float64(length)
	}

	switch {
	case completed >= length && h.seed:
		st.State = StateSeeding
	case completed >= length:
		st.State = StateFinished
	default:
		st.State = StateDownloading
	}

	files := h.t.Files()
	st.FileProgress = make([]int64, len(files))
	for i, f := range files {
		st.FileProgress[i] = f.BytesCompleted()
	}

	return st, nil
}

// sampleRates derives download/upload rates from the client's cumulative
// byte counters between successive Status calls.
func (h *anacrolixHandle) sampleRates(read, written int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(h.lastSample).Seconds()
	if elapsed >= 1 {
		h.dlRate = int64(float64(read-h.lastRead) / elapsed)
		h.ulRate = int64(float64(written-h.lastWritten) / elapsed)
		h.lastRead = read
		h.lastWritten = written
		h.lastSample = now
	}
}

func (h *anacrolixHandle) Metadata() (Metadata, error) {
	if !h.hasInfo() {
		return Metadata{}, fmt.Errorf("torrent metadata not yet available")
	}

	files := h.t.Files()
	md := Metadata{
		Name:      h.t.Name(),
		TotalSize: h.t.Length(),
		Files:     make([]FileInfo, len(files)),
	}
	for i, f := range files {
		md.Files[i] = FileInfo{Path: f.Path(), Size: f.Length()}
	}
	return md, nil
}

func (h *anacrolixHandle) SetFilePriority(index int, prio Priority) error {
	files := h.t.Files()
	if index < 0 || index >= len(files) {
		return fmt.Errorf("file index %d out of range (0-%d)", index, len(files)-1)
	}

	switch prio {
	case PrioritySkip:
		files[index].SetPriority(torrent.PiecePriorityNone)
	case PriorityHigh:
		files[index].SetPriority(torrent.PiecePriorityHigh)
	default:
		files[index].SetPriority(torrent.PiecePriorityNormal)
	}
	return nil
}

func (h *anacrolixHandle) SetSequential(index int) error {
	files := h.t.Files()
	if index < 0 || index >= len(files) {
		return fmt.Errorf("file index %d out of range (0-%d)", index, len(files)-1)
	}

	f := files[index]
	f.Download()

	// Pull the leading pieces of the file first so playback can start
	// before the tail exists. Roughly 5% of the file's pieces, floor 10.
	begin, end := f.BeginPieceIndex(), f.EndPieceIndex()
	lead := (end - begin) / 20
	if lead < 10 {
		lead = 10
	}
	for i := begin; i < begin+lead && i < end; i++ {
		h.t.Piece(i).SetPriority(torrent.PiecePriorityNow)
	}
	return nil
}

func (h *anacrolixHandle) Drop(deleteFiles bool) error {
	name := ""
	if h.hasInfo() {
		name = h.t.Name()
	}

	h.t.Drop()

	if deleteFiles && name != "" {
		// Single-file torrents store dataDir/name, multi-file ones
		// dataDir/name/..., so one RemoveAll covers both.
		if err := os.RemoveAll(filepath.Join(h.dataDir, name)); err != nil {
			return fmt.Errorf("failed to delete torrent data: %w", err)
		}
	}
	return nil
}
