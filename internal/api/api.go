// Package api exposes the playback session over a local JSON HTTP API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wysentanu/localcast/internal/controller"
	"github.com/wysentanu/localcast/internal/library"
)

const sseKeepalive = 15 * time.Second

// Server wires the controller and the optional library index behind HTTP
// handlers.
type Server struct {
	ctrl *controller.Controller
	lib  *library.Library
	log  zerolog.Logger
}

// NewServer builds an API server. lib may be nil when no library was
// configured; the library routes then report a client error.
func NewServer(ctrl *controller.Controller, lib *library.Library, logger zerolog.Logger) *Server {
	return &Server{
		ctrl: ctrl,
		lib:  lib,
		log:  logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/select-file", s.handleSelectFile)
		r.Get("/discover", s.handleDiscover)
		r.Post("/select-device", s.handleSelectDevice)
		r.Post("/cast", s.handleCast)
		r.Post("/play", s.handlePlay)
		r.Post("/pause", s.handlePause)
		r.Post("/stop", s.handleStop)
		r.Post("/leave", s.handleLeave)
		r.Post("/seek", s.handleSeek)
		r.Get("/status", s.handleStatus)
		r.Get("/status/stream", s.handleStatusStream)
		r.Get("/library", s.handleLibrary)
		r.Post("/library/scan", s.handleLibraryScan)
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type selectFileRequest struct {
	FilePath  string `json:"file_path"`
	LibraryID string `json:"library_id"`
}

func (s *Server) handleSelectFile(w http.ResponseWriter, r *http.Request) {
	var req selectFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	path := req.FilePath
	if path == "" && req.LibraryID != "" {
		if s.lib == nil {
			s.writeBadRequest(w, "no library configured")
			return
		}
		entry, err := s.lib.Get(r.Context(), req.LibraryID)
		if err != nil {
			s.writeBadRequest(w, "unknown library id")
			return
		}
		path = entry.Path
	}
	if path == "" {
		s.writeBadRequest(w, "file_path or library_id required")
		return
	}

	if err := s.ctrl.SelectFile(r.Context(), path); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.ctrl.Status())
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	devices, err := s.ctrl.Discover(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"devices": devices})
}

type selectDeviceRequest struct {
	DeviceIndex *int `json:"device_index"`
}

func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	var req selectDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceIndex == nil {
		s.writeBadRequest(w, "device_index required")
		return
	}
	if err := s.ctrl.SelectDevice(*req.DeviceIndex); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.ctrl.Status())
}

func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Cast(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.ctrl.Status())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Play(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.ctrl.Status())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Pause(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.ctrl.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.ctrl.Status())
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Leave(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.ctrl.Status())
}

type seekRequest struct {
	PositionSecs *int64 `json:"position_secs"`
	DeltaSecs    *int64 `json:"delta_secs"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	var err error
	switch {
	case req.PositionSecs != nil:
		err = s.ctrl.Seek(r.Context(), *req.PositionSecs)
	case req.DeltaSecs != nil:
		err = s.ctrl.SeekRelative(r.Context(), *req.DeltaSecs)
	default:
		s.writeBadRequest(w, "position_secs or delta_secs required")
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, s.ctrl.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.ctrl.Status())
}

// handleStatusStream pushes status snapshots over SSE. A keepalive comment
// goes out periodically so idle proxies keep the connection open.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := s.ctrl.Subscribe()
	defer cancel()

	write := func(st controller.Status) bool {
		payload, err := json.Marshal(st)
		if err != nil {
			return false
		}
		if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !write(s.ctrl.Status()) {
		return
	}

	keepalive := time.NewTicker(sseKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case st, open := <-updates:
			if !open || !write(st) {
				return
			}
		case <-keepalive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if s.lib == nil {
		s.writeBadRequest(w, "no library configured")
		return
	}
	entries, err := s.lib.List(r.Context())
	if err != nil {
		s.writeJSONStatus(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, map[string]any{"entries": entries})
}

func (s *Server) handleLibraryScan(w http.ResponseWriter, r *http.Request) {
	if s.lib == nil {
		s.writeBadRequest(w, "no library configured")
		return
	}
	count, err := s.lib.Scan(r.Context())
	if err != nil {
		s.writeJSONStatus(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, map[string]int{"entries": count})
}

type errorResponse struct {
	Error string          `json:"error"`
	Kind  controller.Kind `json:"kind,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := controller.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case controller.KindInvalidArgument, controller.KindFileNotFound, controller.KindUnsupportedFormat:
		status = http.StatusBadRequest
	}
	s.log.Warn().Err(err).Str("kind", string(kind)).Msg("request failed")
	s.writeJSONStatus(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: controller.KindInvalidArgument})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	s.writeJSONStatus(w, http.StatusOK, v)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("response write failed")
	}
}
