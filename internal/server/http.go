package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/export"
	"github.com/muurk/tiscam/internal/logging"
)

// maxSettingsBody bounds POST /api/settings request bodies
const maxSettingsBody = 64 * 1024

// ApplyResponse is the body of POST /api/settings
type ApplyResponse struct {
	Config     camera.Config `json:"config"`
	Message    string        `json:"message"`
	RolledBack bool          `json:"rolled_back,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// FormatsResponse is the body of GET /api/formats
type FormatsResponse struct {
	Supported []string `json:"supported"`
	Device    []string `json:"device"`
	Current   string   `json:"current"`
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.lockCamera(r.Context()); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	cfg := s.cam.Info()
	s.unlockCamera()

	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var settings camera.Settings
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid settings JSON: %w", err))
		return
	}
	if settings.IsEmpty() {
		writeError(w, http.StatusBadRequest, errors.New("no settings given"))
		return
	}

	if err := s.lockCamera(r.Context()); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	result := s.rollback.SafeApply(settings, "settings from "+r.RemoteAddr)
	cfg := s.cam.Info()
	s.unlockCamera()

	resp := ApplyResponse{
		Config:     cfg,
		Message:    result.String(),
		RolledBack: result.RollbackSucceeded,
	}
	if result.Success {
		logging.Info("Settings applied over HTTP",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("changes", settings.FormatChanges()),
		)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Error = result.Error.Error()
	logging.Warn("Settings rejected over HTTP",
		zap.String("remote_addr", r.RemoteAddr),
		zap.Bool("rolled_back", result.RollbackSucceeded),
		zap.Error(result.Error),
	)
	writeJSON(w, statusForError(result.Error), resp)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	if err := s.lockCamera(r.Context()); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	resp := FormatsResponse{
		Supported: s.cam.VideoFormats(),
		Device:    s.cam.DeviceVideoFormats(),
		Current:   s.cam.VideoFormat(),
	}
	s.unlockCamera()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFrameTIFF(w http.ResponseWriter, r *http.Request) {
	frames, err := s.grab(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	var buf bytes.Buffer
	if err := export.EncodeFrame(&buf, frames, 0, export.Options{}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "image/tiff")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// statusForError maps camera error types to HTTP status codes
func statusForError(err error) int {
	switch {
	case camera.IsValidationError(err):
		return http.StatusBadRequest
	case camera.IsVerificationError(err):
		return http.StatusConflict
	case camera.IsTimeoutError(err):
		return http.StatusGatewayTimeout
	case camera.IsStateError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logging.Debug("Failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var camErr *camera.CameraError
	if errors.As(err, &camErr) {
		resp.Type = camErr.Type.String()
	}
	writeJSON(w, status, resp)
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the WebSocket upgrade take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
