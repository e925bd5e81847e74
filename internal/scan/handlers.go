package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// corsJSONError writes a JSON error body with CORS headers set
func corsJSONError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// stateResponse is the payload of GET /api/state
type stateResponse struct {
	Screen  Screen       `json:"screen"`
	Session *SessionView `json:"session,omitempty"`
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleState returns the active screen and review session
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	screen, session := s.service.State()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stateResponse{Screen: screen, Session: session}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleNavigate moves to another screen
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Screen Screen `json:"screen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.Navigate(req.Screen); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			corsJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Error navigating", "screen", req.Screen, "error", err)
		corsJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.handleState(w, r)
}

// handleCapture accepts a captured image and opens the review session
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	// 50MB cap to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		corsJSONError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		corsJSONError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		corsJSONError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		corsJSONError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), header.Filename)

	if _, err := s.service.Capture(header.Filename, data, contentType); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			corsJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Error capturing scan", "filename", header.Filename, "error", err)
		corsJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	screen, session := s.service.State()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(stateResponse{Screen: screen, Session: session}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// detectContentType fills in a missing content type from the file extension
// and normalizes it
func detectContentType(contentType, filename string) string {
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// handleSessionFile returns the active session's image for review display
func (s *Server) handleSessionFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.SessionFile()
	if err != nil {
		corsError(w, "No active session", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleEnhance re-runs AI enhancement for the active session
func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.service.Enhance()
	if err != nil {
		switch {
		case errors.Is(err, ErrEnhanceInFlight):
			corsJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrNoActiveSession):
			corsJSONError(w, err.Error(), http.StatusNotFound)
		default:
			slog.Error("Error enhancing scan", "error", err)
			corsJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleSaveScan commits the active session to the history
func (s *Server) handleSaveScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			corsJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	record, err := s.service.SaveScan(req.Title)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoActiveSession):
			corsJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrEnhanceInFlight), errors.Is(err, ErrNotEnhanced):
			corsJSONError(w, err.Error(), http.StatusConflict)
		default:
			slog.Error("Error saving scan", "error", err)
			corsJSONError(w, "Failed to save scan", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(record); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListScans returns the scan history, filtered by the q parameter
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	records := s.service.ListScans(r.URL.Query().Get("q"))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetScan returns a single saved scan
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	record, err := s.service.GetScan(id)
	if err != nil {
		corsError(w, "Scan not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetScanFile returns the processed image for a saved scan
func (s *Server) handleGetScanFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.ScanFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDownloadScan exports the processed image under its derived filename
func (s *Server) handleDownloadScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	data, name, contentType, err := s.service.ExportScan(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

// handleDeleteScan deletes a saved scan
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteScan(id); err != nil {
		slog.Error("Error deleting scan", "id", id, "error", err)
		corsError(w, "Error deleting scan", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
