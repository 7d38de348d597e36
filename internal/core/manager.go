package core

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"

	"syncwatch/internal/bridge"
	"syncwatch/internal/clients/engine"
	"syncwatch/internal/clients/notifications"
	"syncwatch/internal/clients/search"
	"syncwatch/internal/config"
	"syncwatch/internal/database/models"
	"syncwatch/internal/rooms"
	"syncwatch/internal/utils"
)

// Manager wires the download registry, rooms, search and notifications
// together and runs the periodic cleanup sweep.
type Manager struct {
	config   *config.Config
	logger   *utils.Logger
	engine   engine.Engine
	notifier notifications.Notifier

	Registry     *bridge.Registry
	Rooms        *rooms.Manager
	Hub          *rooms.Hub
	SearchClient search.Client
	History      *models.HistoryRepository

	scheduler *cron.Cron
	startedAt time.Time
}

func NewManager(cfg *config.Config, db *sql.DB, logger *utils.Logger) *Manager {
	m := &Manager{
		config:    cfg,
		logger:    logger,
		scheduler: cron.New(),
		startedAt: time.Now(),
	}

	switch cfg.Torrent.Backend {
	case "builtin":
		eng, err := engine.NewAnacrolixEngine(cfg.Torrent.DownloadPath, cfg.Torrent.MaxPeers, cfg.Torrent.Seed)
		if err != nil {
			logger.Fatal("Failed to start builtin torrent engine:", err)
		}
		m.engine = eng
	case "qbittorrent":
		qb := cfg.Torrent.QBittorrent
		m.engine = engine.NewQBittorrentEngine(qb.Host, qb.Username, qb.Password, cfg.Torrent.DownloadPath)
	default:
		logger.Fatal("Unsupported torrent backend:", cfg.Torrent.Backend)
	}

	m.Registry = bridge.NewRegistry(m.engine, cfg.Torrent.DownloadPath, logger)
	if cfg.Torrent.MetadataTimeout > 0 {
		m.Registry.MetadataTimeout = time.Duration(cfg.Torrent.MetadataTimeout) * time.Second
	}

	if cfg.Notifications.PushbulletAPIKey != "" {
		m.notifier = notifications.NewPushbulletClient(cfg.Notifications.PushbulletAPIKey, logger)
	} else {
		m.notifier = notifications.NoopNotifier{}
	}
	m.Registry.OnStreamReady = m.notifier.NotifyStreamReady

	m.Rooms = rooms.NewManager(cfg.Rooms.ChatHistory, logger)
	m.Hub = rooms.NewHub(m.Rooms, logger)

	if cfg.Search.URL != "" {
		m.SearchClient = search.NewTorznabClient(cfg.Search.URL, cfg.Search.APIKey, 30*time.Second)
	}

	if db != nil {
		m.History = models.NewHistoryRepository(db)
	}

	return m
}

// AddTorrent registers a download, records it in the watch history and
// returns its id with a first snapshot.
func (m *Manager) AddTorrent(magnetURL, title string) (string, *bridge.Snapshot, error) {
	id, err := m.Registry.Add(magnetURL)
	if err != nil {
		return "", nil, err
	}

	snap, err := m.Registry.Snapshot(id)
	if err != nil {
		return "", nil, err
	}

	if m.History != nil {
		name := title
		if name == "" {
			name = snap.Name
		}
		if err := m.History.Record(name, magnetURL, snap.TotalSize); err != nil {
			m.logger.Warn("Failed to record watch history:", err)
		}
	}

	return id, snap, nil
}

// Search queries the configured indexer and returns ranked results.
func (m *Manager) Search(query string) ([]search.Result, error) {
	if m.SearchClient == nil {
		return nil, fmt.Errorf("no search indexer configured")
	}
	return m.SearchClient.Search(query)
}

// TestIndexer checks connectivity to the configured search indexer.
func (m *Manager) TestIndexer() error {
	if m.SearchClient == nil {
		return fmt.Errorf("no search indexer configured")
	}
	ok, err := m.SearchClient.HealthCheck()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("indexer health check failed")
	}
	return nil
}

// TestNotifier sends a test push through the configured notifier.
func (m *Manager) TestNotifier() error {
	return m.notifier.Test()
}

func (m *Manager) StartScheduler() {
	m.scheduler.AddFunc("@every 1h", func() {
		maxAge := time.Duration(m.config.Torrent.CleanupMaxAge) * time.Hour
		if n := m.Registry.CleanupOlderThan(maxAge); n > 0 {
			m.logger.Info("Periodic cleanup removed", n, "torrents")
		}
	})
	m.scheduler.Start()
	m.logger.Info("Scheduler started")
}

func (m *Manager) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	if m.engine != nil {
		m.engine.Close()
	}
}

// SystemStatus is the operator-facing health view.
type SystemStatus struct {
	UptimeSeconds     int64   `json:"uptime_seconds"`
	ActiveTorrents    int     `json:"active_torrents"`
	ActiveRooms       int     `json:"active_rooms"`
	TorrentBackend    string  `json:"torrent_backend"`
	SearchEnabled     bool    `json:"search_enabled"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	DiskFreeBytes     uint64  `json:"disk_free_bytes"`
	DiskUsedPercent   float64 `json:"disk_used_percent"`
}

func (m *Manager) GetSystemStatus() SystemStatus {
	status := SystemStatus{
		UptimeSeconds:  int64(time.Since(m.startedAt).Seconds()),
		ActiveTorrents: len(m.Registry.IDs()),
		ActiveRooms:    m.Rooms.Count(),
		TorrentBackend: m.config.Torrent.Backend,
		SearchEnabled:  m.SearchClient != nil,
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemoryUsedPercent = vm.UsedPercent
	}
	if du, err := disk.Usage(m.config.Torrent.DownloadPath); err == nil {
		status.DiskFreeBytes = du.Free
		status.DiskUsedPercent = du.UsedPercent
	}

	return status
}
