package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"syncwatch/internal/bridge"
	"syncwatch/internal/core"
	"syncwatch/internal/database/models"
	"syncwatch/internal/rooms"
	"syncwatch/internal/stream"
	"syncwatch/internal/utils"
)

type APIHandler struct {
	manager *core.Manager
	streams *stream.Server
	logger  *utils.Logger
}

func NewAPIHandler(manager *core.Manager, streams *stream.Server, logger *utils.Logger) *APIHandler {
	return &APIHandler{manager: manager, streams: streams, logger: logger}
}

// A helper function to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to respond with a JSON error
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

// Add a torrent and wait for its metadata
func (h *APIHandler) AddTorrent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MagnetURL string `json:"magnet_url"`
		Title     string `json:"title"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.MagnetURL == "" {
		respondError(w, http.StatusBadRequest, "magnet_url is required")
		return
	}

	id, snap, err := h.manager.AddTorrent(req.MagnetURL, req.Title)
	if err != nil {
		h.logger.Error("Failed to add torrent:", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"torrent_id": id,
		"status":     snap,
	})
}

func (h *APIHandler) ListTorrents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"torrents": h.manager.Registry.List(),
	})
}

func (h *APIHandler) GetTorrent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snap, err := h.manager.Registry.Snapshot(id)
	if err != nil {
		switch {
		case errors.Is(err, bridge.ErrNotFound), errors.Is(err, bridge.ErrStuck):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (h *APIHandler) RemoveTorrent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Files are deleted by default; pass delete_files=false to keep them.
	deleteFiles := r.URL.Query().Get("delete_files") != "false"

	if err := h.manager.Registry.Remove(id, deleteFiles); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Torrent removed",
	})
}

func (h *APIHandler) CleanupTorrents(w http.ResponseWriter, r *http.Request) {
	maxAgeHours := 24
	if v := r.URL.Query().Get("max_age_hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "Invalid max_age_hours")
			return
		}
		maxAgeHours = parsed
	}

	removed := h.manager.Registry.CleanupOlderThan(time.Duration(maxAgeHours) * time.Hour)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"removed": removed,
	})
}

func (h *APIHandler) ClearTorrents(w http.ResponseWriter, r *http.Request) {
	cleared := h.manager.Registry.Clear()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"cleared": cleared,
	})
}

// Stream a torrent file, serving partial content while the download is
// still in flight. The trailing path segment selects a file index; without
// it the largest video file is streamed.
func (h *APIHandler) StreamTorrent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	fileIndex := -1
	if v, ok := vars["fileIndex"]; ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "Invalid file index")
			return
		}
		fileIndex = parsed
	}

	target, err := h.manager.Registry.StreamTarget(id, fileIndex)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	// A file that never made it to disk answers 404 before any
	// readiness question is asked.
	fullPath := filepath.Join(h.manager.Registry.DataDir(), target.Path)
	if !h.streams.Exists(fullPath) {
		respondError(w, http.StatusNotFound, bridge.ErrFileNotOnDisk.Error())
		return
	}

	if !target.Ready {
		respondJSON(w, http.StatusTooEarly, map[string]interface{}{
			"error":     bridge.ErrNotReady.Error(),
			"progress":  fmt.Sprintf("%.1f%%", target.Progress*100),
			"threshold": fmt.Sprintf("%.1f%%", target.Threshold*100),
		})
		return
	}

	h.streams.ServeFile(w, r, fullPath, target.ExpectedTotal, target.ContentType)
}

// Create a watch room
func (h *APIHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserName == "" {
		respondError(w, http.StatusBadRequest, "user_name is required")
		return
	}

	room, userID := h.manager.Rooms.Create(req.UserName)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"room":    room,
		"user_id": userID,
	})
}

func (h *APIHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.manager.Rooms.Get(mux.Vars(r)["code"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, room)
}

func (h *APIHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserName == "" {
		respondError(w, http.StatusBadRequest, "user_name is required")
		return
	}

	room, userID, err := h.manager.Rooms.Join(mux.Vars(r)["code"], req.UserName)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.manager.Hub.Broadcast(room.Code, rooms.Event{Type: "user_joined", UserID: userID, UserName: req.UserName})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"room":    room,
		"user_id": userID,
	})
}

func (h *APIHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	code := mux.Vars(r)["code"]
	if err := h.manager.Rooms.Leave(code, req.UserID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.manager.Hub.Broadcast(code, rooms.Event{Type: "user_left", UserID: req.UserID})
	respondJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

func (h *APIHandler) RoomSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	h.manager.Hub.ServeWS(w, r, mux.Vars(r)["code"], userID)
}

// Search the configured indexer
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	results, err := h.manager.Search(query)
	if err != nil {
		h.logger.Error("Search failed:", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, results)
}

func (h *APIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.manager.History == nil {
		respondError(w, http.StatusServiceUnavailable, "history database not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.manager.History.Recent(limit)
	if err != nil {
		h.logger.Error("Failed to fetch watch history:", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	respondJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) GetSystemStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.GetSystemStatus())
}

func (h *APIHandler) TestIndexer(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.TestIndexer(); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) TestNotifier(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.TestNotifier(); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
