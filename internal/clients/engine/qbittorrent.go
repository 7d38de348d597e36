package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"syncwatch/internal/utils"
)

// QBittorrentEngine drives a qBittorrent daemon over its Web API. The
// daemon must write into the same download directory this service streams
// from. It is the one remote client whose API covers everything a handle
// needs: per-file priorities, a sequential-download mode and per-file
// progress.
type QBittorrentEngine struct {
	host        string
	username    string
	password    string
	downloadDir string
	httpClient  *http.Client
}

type qbittorrentHandle struct {
	engine *QBittorrentEngine
	hash   string
}

type qbTorrentInfo struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Progress float64 `json:"progress"`
	DLSpeed  int64   `json:"dlspeed"`
	UPSpeed  int64   `json:"upspeed"`
	NumSeeds int     `json:"num_seeds"`
	NumLeech int     `json:"num_leechs"`
	State    string  `json:"state"`
	SeqDL    bool    `json:"seq_dl"`
}

type qbTorrentFile struct {
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Progress float64 `json:"progress"`
}

var qbStates = map[string]State{
	"allocating":         StateAllocating,
	"metaDL":             StateFetchingMetadata,
	"forcedMetaDL":       StateFetchingMetadata,
	"downloading":        StateDownloading,
	"stalledDL":          StateDownloading,
	"forcedDL":           StateDownloading,
	"queuedDL":           StateQueued,
	"queuedUP":           StateQueued,
	"checkingDL":         StateChecking,
	"checkingUP":         StateChecking,
	"checkingResumeData": StateChecking,
	"uploading":          StateSeeding,
	"stalledUP":          StateSeeding,
	"forcedUP":           StateSeeding,
	"pausedUP":           StateFinished,
	"stoppedUP":          StateFinished,
}

func NewQBittorrentEngine(host, username, password, downloadDir string) *QBittorrentEngine {
	return &QBittorrentEngine{
		host:        host,
		username:    username,
		password:    password,
		downloadDir: downloadDir,
		httpClient:  &http.Client{},
	}
}

// login authenticates with the qBittorrent Web API and gets a session cookie.
func (q *QBittorrentEngine) login() (*http.Cookie, error) {
	loginURL := fmt.Sprintf("%s/api/v2/auth/login", q.host)
	data := url.Values{}
	data.Set("username", q.username)
	data.Set("password", q.password)

	req, err := http.NewRequest("POST", loginURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qbittorrent login failed with status: %s", resp.Status)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "SID" {
			return cookie, nil
		}
	}
	return nil, fmt.Errorf("SID cookie not found after login")
}

func (q *QBittorrentEngine) postForm(path string, data url.Values) error {
	cookie, err := q.login()
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", q.host+path, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.AddCookie(cookie)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qbittorrent request %s failed with status: %s", path, resp.Status)
	}
	return nil
}

func (q *QBittorrentEngine) getJSON(path string, params url.Values, out interface{}) error {
	cookie, err := q.login()
	if err != nil {
		return err
	}

	req, err := http.NewRequest("GET", fmt.Sprintf("%s%s?%s", q.host, path, params.Encode()), nil)
	if err != nil {
		return err
	}
	req.AddCookie(cookie)

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qbittorrent request %s failed with status: %s", path, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (q *QBittorrentEngine) Add(src string) (Handle, error) {
	// qBittorrent does not return the hash on add; it is derived from the
	// magnet URI instead.
	hash, err := utils.InfoHashFromMagnet(src)
	if err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("urls", src)
	data.Set("savepath", q.downloadDir)

	if err := q.postForm("/api/v2/torrents/add", data); err != nil {
		return nil, err
	}
	return &qbittorrentHandle{engine: q, hash: hash}, nil
}

func (q *QBittorrentEngine) Close() error {
	return nil
}

func (h *qbittorrentHandle) info() (*qbTorrentInfo, error) {
	params := url.Values{}
	params.Set("hashes", h.hash)

	var infos []qbTorrentInfo
	if err := h.engine.getJSON("/api/v2/torrents/info", params, &infos); err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("torrent %s not known to qbittorrent", h.hash)
	}
	return &infos[0], nil
}

func (h *qbittorrentHandle) files() ([]qbTorrentFile, error) {
	params := url.Values{}
	params.Set("hash", h.hash)

	var files []qbTorrentFile
	if err := h.engine.getJSON("/api/v2/torrents/files", params, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (h *qbittorrentHandle) Status() (HandleStatus, error) {
	info, err := h.info()
	if err != nil {
		return HandleStatus{}, err
	}

	state, ok := qbStates[info.State]
	if !ok {
		state = StateUnknown
	}

	st := HandleStatus{
		HasMetadata:  info.State != "metaDL" && info.State != "forcedMetaDL" && info.Size > 0,
		State:        state,
		Progress:     info.Progress,
		DownloadRate: info.DLSpeed,
		UploadRate:   info.UPSpeed,
		NumPeers:     info.NumSeeds + info.NumLeech,
	}

	if st.HasMetadata {
		files, err := h.files()
		if err != nil {
			return HandleStatus{}, err
		}
		st.FileProgress = make([]int64, len(files))
		for i, f := range files {
			st.FileProgress[i] = int64(f.Progress * float64(f.Size))
		}
	}

	return st, nil
}

func (h *qbittorrentHandle) Metadata() (Metadata, error) {
	info, err := h.info()
	if err != nil {
		return Metadata{}, err
	}

	files, err := h.files()
	if err != nil {
		return Metadata{}, err
	}

	md := Metadata{
		Name:      info.Name,
		TotalSize: info.Size,
		Files:     make([]FileInfo, len(files)),
	}
	for i, f := range files {
		md.Files[i] = FileInfo{Path: f.Name, Size: f.Size}
	}
	return md, nil
}

func (h *qbittorrentHandle) SetFilePriority(index int, prio Priority) error {
	// qBittorrent priorities: 0 skip, 1 normal, 7 maximal.
	qbPrio := 1
	switch prio {
	case PrioritySkip:
		qbPrio = 0
	case PriorityHigh:
		qbPrio = 7
	}

	data := url.Values{}
	data.Set("hash", h.hash)
	data.Set("id", strconv.Itoa(index))
	data.Set("priority", strconv.Itoa(qbPrio))
	return h.engine.postForm("/api/v2/torrents/filePrio", data)
}

func (h *qbittorrentHandle) SetSequential(index int) error {
	info, err := h.info()
	if err != nil {
		return err
	}
	if info.SeqDL {
		return nil
	}

	data := url.Values{}
	data.Set("hashes", h.hash)
	return h.engine.postForm("/api/v2/torrents/toggleSequentialDownload", data)
}

func (h *qbittorrentHandle) Drop(deleteFiles bool) error {
	data := url.Values{}
	data.Set("hashes", h.hash)
	data.Set("deleteFiles", strconv.FormatBool(deleteFiles))
	return h.engine.postForm("/api/v2/torrents/delete", data)
}
