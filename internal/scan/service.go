package scan

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickscan-id/quickscan/internal/enhance"
)

// IDGenerator generates unique IDs for scans
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service orchestrates the scan lifecycle: navigation, capture, enhancement,
// history and export
type Service struct {
	store       Store
	enhancer    enhance.Enhancer
	files       Storage
	controller  *Controller
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(store Store, enhancer enhance.Enhancer, files Storage) *Service {
	return NewServiceWithDeps(store, enhancer, files, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store Store, enhancer enhance.Enhancer, files Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		store:       store,
		enhancer:    enhancer,
		files:       files,
		controller:  NewController(),
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// State returns the active screen and a serializable view of the session
func (s *Service) State() (Screen, *SessionView) {
	return s.controller.Snapshot()
}

// Navigate moves to the given screen. The review screen is only reachable
// through Capture; leaving review discards the pending session and its stored
// image without touching the history.
func (s *Service) Navigate(target Screen) error {
	switch target {
	case ScreenScanning:
		return s.controller.Transition(EventNewScan)
	case ScreenHistory:
		return s.controller.Transition(EventOpenHistory)
	case ScreenHome:
		screen, _ := s.controller.State()
		switch screen {
		case ScreenHome:
			return nil
		case ScreenScanning:
			return s.controller.Transition(EventCancelCapture)
		case ScreenHistory:
			return s.controller.Transition(EventGoHome)
		case ScreenReview:
			session, err := s.controller.FinishReview(EventCancelReview)
			if err != nil {
				return err
			}
			if err := s.files.Delete(session.OriginalFile); err != nil {
				slog.Warn("Failed to delete discarded capture", "file", session.OriginalFile, "error", err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: cannot navigate to %s", ErrInvalidTransition, target)
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length (phone-generated names can be absurdly long)
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "scan"
	}

	return base + ext
}

// Capture stores a captured image, starts the review session for it and runs
// the first enhancement. Requires the scanning screen to be active.
func (s *Service) Capture(filename string, data []byte, contentType string) (*Session, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.files.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving capture: %w", err)
	}

	session := &Session{
		ID:           id,
		OriginalFile: savedPath,
		ContentType:  contentType,
		FileSize:     len(data),
		CreatedAt:    now,
	}

	if err := s.controller.CompleteCapture(session); err != nil {
		if delErr := s.files.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete orphaned capture", "file", savedPath, "error", delErr)
		}
		return nil, err
	}

	// Kick off the initial enhancement; the session stays valid either way
	if _, err := s.Enhance(); err != nil {
		slog.Warn("Initial enhancement could not start", "id", id, "error", err)
	}

	return session, nil
}

// Enhance runs AI enhancement for the active session. At most one request is
// in flight per session; overlapping triggers return ErrEnhanceInFlight.
// Service failures never surface as errors: the result degrades to a
// placeholder title with no extracted text, marked Failed for observability.
func (s *Service) Enhance() (*EnhanceOutcome, error) {
	session, err := s.controller.BeginEnhancement()
	if err != nil {
		return nil, err
	}

	outcome := s.runEnhancement(session)
	s.controller.EndEnhancement(session, outcome)

	return outcome, nil
}

func (s *Service) runEnhancement(session *Session) *EnhanceOutcome {
	data, err := s.files.Get(session.OriginalFile)
	if err != nil {
		slog.Error("Failed to read capture for enhancement", "id", session.ID, "error", err)
		return s.degradedOutcome(session)
	}

	doc, err := s.enhancer.EnhanceDocument(data, session.ContentType)
	if err != nil {
		slog.Error("Enhancement failed",
			"id", session.ID,
			"content_type", session.ContentType,
			"file_size", session.FileSize,
			"error", err,
		)
		return s.degradedOutcome(session)
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = "Untitled Scan"
	}

	// No image transformation is applied yet; the processed image is the
	// original capture.
	return &EnhanceOutcome{
		Title:         title,
		OCRText:       doc.OCRContent,
		QualityScore:  doc.QualityScore,
		ProcessedFile: session.OriginalFile,
	}
}

func (s *Service) degradedOutcome(session *Session) *EnhanceOutcome {
	return &EnhanceOutcome{
		Title:         "Document " + s.timeSource.Now().Format("15:04:05"),
		OCRText:       "",
		QualityScore:  0,
		ProcessedFile: session.OriginalFile,
		Failed:        true,
	}
}

// SaveScan commits the active session to the history. A user-edited title
// overrides the suggested one. On a persistence failure the session is kept
// so the save can be retried.
func (s *Service) SaveScan(titleOverride string) (*ScanRecord, error) {
	session, err := s.controller.ReadyForSave()
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(titleOverride)
	if title == "" {
		title = session.Outcome.Title
	}

	record := ScanRecord{
		ID:            session.ID,
		Title:         title,
		OCRText:       session.Outcome.OCRText,
		QualityScore:  session.Outcome.QualityScore,
		OriginalFile:  session.OriginalFile,
		ProcessedFile: session.Outcome.ProcessedFile,
		ContentType:   session.ContentType,
		FileSize:      session.FileSize,
		CreatedAt:     session.CreatedAt,
	}

	if err := s.store.Insert(record); err != nil {
		return nil, fmt.Errorf("saving scan: %w", err)
	}

	if _, err := s.controller.FinishReview(EventSaveDone); err != nil {
		slog.Warn("Session already gone after save", "id", record.ID, "error", err)
	}

	return &record, nil
}

// SessionFile returns the active session's image for review display
func (s *Service) SessionFile() ([]byte, string, error) {
	session, err := s.controller.ActiveSession()
	if err != nil {
		return nil, "", err
	}

	data, err := s.files.Get(session.OriginalFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting session file: %w", err)
	}

	return data, session.ContentType, nil
}

// ListScans returns the history filtered by the search query, newest first
func (s *Service) ListScans(query string) []ScanRecord {
	return Filter(s.store.List(), query)
}

// GetScan retrieves a saved scan by ID
func (s *Service) GetScan(id string) (ScanRecord, error) {
	record, ok := s.store.Get(id)
	if !ok {
		return ScanRecord{}, fmt.Errorf("scan not found: %s", id)
	}
	return record, nil
}

// DeleteScan removes a scan and its image files. Deleting an unknown ID is a
// no-op.
func (s *Service) DeleteScan(id string) error {
	record, ok := s.store.Get(id)
	if !ok {
		return nil
	}

	if err := s.files.Delete(record.OriginalFile); err != nil {
		slog.Warn("Failed to delete file", "filename", record.OriginalFile, "error", err)
	}
	if record.ProcessedFile != "" && record.ProcessedFile != record.OriginalFile {
		if err := s.files.Delete(record.ProcessedFile); err != nil {
			slog.Warn("Failed to delete file", "filename", record.ProcessedFile, "error", err)
		}
	}

	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("deleting scan: %w", err)
	}
	return nil
}

// ScanFile returns the processed image for a saved scan
func (s *Service) ScanFile(id string) ([]byte, string, error) {
	record, ok := s.store.Get(id)
	if !ok {
		return nil, "", fmt.Errorf("scan not found: %s", id)
	}

	data, err := s.files.Get(record.ProcessedFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan file: %w", err)
	}

	return data, record.ContentType, nil
}

// ExportScan returns the processed image together with a download filename
// derived from the scan title
func (s *Service) ExportScan(id string) ([]byte, string, string, error) {
	record, ok := s.store.Get(id)
	if !ok {
		return nil, "", "", fmt.Errorf("scan not found: %s", id)
	}

	data, err := s.files.Get(record.ProcessedFile)
	if err != nil {
		return nil, "", "", fmt.Errorf("getting scan file: %w", err)
	}

	name := sanitizeFilename(record.Title) + extensionForContentType(record.ContentType)
	return data, name, record.ContentType, nil
}

// extensionForContentType maps a MIME type to a download file extension
func extensionForContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/heic", "image/heif":
		return ".heic"
	case "application/pdf":
		return ".pdf"
	default:
		return ".png"
	}
}
