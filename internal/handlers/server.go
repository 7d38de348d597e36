package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"syncwatch/internal/config"
	"syncwatch/internal/core"
	"syncwatch/internal/stream"
	"syncwatch/internal/utils"
)

type Server struct {
	config     *config.Config
	manager    *core.Manager
	logger     *utils.Logger
	httpServer *http.Server
	apiHandler *APIHandler
}

func NewServer(cfg *config.Config, manager *core.Manager, logger *utils.Logger) *Server {
	streamServer := stream.NewServer(afero.NewOsFs(), logger)
	return &Server{
		config:     cfg,
		manager:    manager,
		logger:     logger,
		apiHandler: NewAPIHandler(manager, streamServer, logger),
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Torrents (paths follow the bridge wire format existing clients use)
	api.HandleFunc("/torrent/add", s.apiHandler.AddTorrent).Methods("POST")
	api.HandleFunc("/torrent/status/{id}", s.apiHandler.GetTorrent).Methods("GET")
	api.HandleFunc("/torrent/stream/{id}", s.apiHandler.StreamTorrent).Methods("GET", "HEAD")
	api.HandleFunc("/torrent/stream/{id}/{fileIndex:[0-9]+}", s.apiHandler.StreamTorrent).Methods("GET", "HEAD")
	api.HandleFunc("/torrent/remove/{id}", s.apiHandler.RemoveTorrent).Methods("DELETE")
	api.HandleFunc("/torrent/list", s.apiHandler.ListTorrents).Methods("GET")
	api.HandleFunc("/torrent/cleanup", s.apiHandler.CleanupTorrents).Methods("POST")
	api.HandleFunc("/torrent/clear-all", s.apiHandler.ClearTorrents).Methods("POST")

	// Rooms
	api.HandleFunc("/rooms", s.apiHandler.CreateRoom).Methods("POST")
	api.HandleFunc("/rooms/{code}", s.apiHandler.GetRoom).Methods("GET")
	api.HandleFunc("/rooms/{code}/join", s.apiHandler.JoinRoom).Methods("POST")
	api.HandleFunc("/rooms/{code}/leave", s.apiHandler.LeaveRoom).Methods("POST")
	api.HandleFunc("/rooms/{code}/ws", s.apiHandler.RoomSocket).Methods("GET")

	// Search and history
	api.HandleFunc("/search", s.apiHandler.Search).Methods("GET")
	api.HandleFunc("/history", s.apiHandler.GetHistory).Methods("GET")

	// Operations
	api.HandleFunc("/system", s.apiHandler.GetSystemStatus).Methods("GET")
	api.HandleFunc("/test/indexer", s.apiHandler.TestIndexer).Methods("GET")
	api.HandleFunc("/test/notify", s.apiHandler.TestNotifier).Methods("GET")

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.App.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: progressive streams and room sockets stay
		// open for as long as playback does.
		WriteTimeout: 0,
	}

	s.logger.Info("Starting server on port", s.config.App.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
