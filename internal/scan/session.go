package scan

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Screen identifies the active application screen
type Screen string

const (
	ScreenHome     Screen = "home"
	ScreenScanning Screen = "scanning"
	ScreenReview   Screen = "review"
	ScreenHistory  Screen = "history"
)

// Event is a user action driving a screen transition
type Event string

const (
	EventNewScan       Event = "new_scan"
	EventCaptureDone   Event = "capture_done"
	EventCancelCapture Event = "cancel_capture"
	EventSaveDone      Event = "save_done"
	EventCancelReview  Event = "cancel_review"
	EventOpenHistory   Event = "open_history"
	EventGoHome        Event = "go_home"
)

var (
	ErrInvalidTransition = errors.New("invalid screen transition")
	ErrNoActiveSession   = errors.New("no active scan session")
	ErrEnhanceInFlight   = errors.New("enhancement already in progress")
	ErrNotEnhanced       = errors.New("session has not been enhanced")
)

// Next is the pure screen transition function. Exactly one screen is active at
// a time; review is only reachable through a completed capture.
func Next(s Screen, e Event) (Screen, error) {
	switch {
	case s == ScreenHome && e == EventNewScan:
		return ScreenScanning, nil
	case s == ScreenHome && e == EventOpenHistory:
		return ScreenHistory, nil
	case s == ScreenScanning && e == EventCaptureDone:
		return ScreenReview, nil
	case s == ScreenScanning && e == EventCancelCapture:
		return ScreenHome, nil
	case s == ScreenReview && e == EventSaveDone:
		return ScreenHome, nil
	case s == ScreenReview && e == EventCancelReview:
		return ScreenHome, nil
	case s == ScreenHistory && e == EventGoHome:
		return ScreenHome, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}

// Session is the transient in-memory state for one capture, from the moment an
// image is taken until the user saves or discards it. It is never persisted.
type Session struct {
	ID           string          `json:"id"`
	OriginalFile string          `json:"original_file"`
	ContentType  string          `json:"content_type"`
	FileSize     int             `json:"file_size"`
	CreatedAt    time.Time       `json:"created_at"`
	Outcome      *EnhanceOutcome `json:"outcome,omitempty"`

	enhancing bool
}

// SessionView is a copy of the session state, safe to serialize while an
// enhancement is running
type SessionView struct {
	ID          string          `json:"id"`
	ContentType string          `json:"content_type"`
	FileSize    int             `json:"file_size"`
	CreatedAt   time.Time       `json:"created_at"`
	Enhancing   bool            `json:"enhancing"`
	Outcome     *EnhanceOutcome `json:"outcome,omitempty"`
}

// Controller owns the active screen and the one in-flight session. All moves
// go through the Next transition table, which keeps the invariant that a
// session exists exactly when the review screen is active.
type Controller struct {
	mu      sync.Mutex
	screen  Screen
	session *Session
}

// NewController creates a Controller on the home screen
func NewController() *Controller {
	return &Controller{screen: ScreenHome}
}

// State returns the active screen and session
func (c *Controller) State() (Screen, *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen, c.session
}

// Snapshot returns the active screen and a serializable copy of the session
func (c *Controller) Snapshot() (Screen, *SessionView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return c.screen, nil
	}
	return c.screen, &SessionView{
		ID:          c.session.ID,
		ContentType: c.session.ContentType,
		FileSize:    c.session.FileSize,
		CreatedAt:   c.session.CreatedAt,
		Enhancing:   c.session.enhancing,
		Outcome:     c.session.Outcome,
	}
}

// Transition applies a session-less navigation event
func (c *Controller) Transition(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := Next(c.screen, e)
	if err != nil {
		return err
	}
	c.screen = next
	return nil
}

// CompleteCapture moves scanning -> review and attaches the captured session
func (c *Controller) CompleteCapture(s *Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := Next(c.screen, EventCaptureDone)
	if err != nil {
		return err
	}
	c.screen = next
	c.session = s
	return nil
}

// FinishReview moves review -> home and detaches the session. Used by both the
// save and the discard path; the caller decides what happens to the session.
func (c *Controller) FinishReview(e Event) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := Next(c.screen, e)
	if err != nil {
		return nil, err
	}
	s := c.session
	c.screen = next
	c.session = nil
	return s, nil
}

// ActiveSession returns the session under review
func (c *Controller) ActiveSession() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenReview || c.session == nil {
		return nil, ErrNoActiveSession
	}
	return c.session, nil
}

// ReadyForSave validates that the active session can be committed: review
// screen active, enhancement finished, outcome present.
func (c *Controller) ReadyForSave() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenReview || c.session == nil {
		return nil, ErrNoActiveSession
	}
	if c.session.enhancing {
		return nil, ErrEnhanceInFlight
	}
	if c.session.Outcome == nil {
		return nil, ErrNotEnhanced
	}
	return c.session, nil
}

// BeginEnhancement marks the active session as having an enhancement in
// flight. A second trigger before EndEnhancement is rejected rather than
// racing the first.
func (c *Controller) BeginEnhancement() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenReview || c.session == nil {
		return nil, ErrNoActiveSession
	}
	if c.session.enhancing {
		return nil, ErrEnhanceInFlight
	}
	c.session.enhancing = true
	return c.session, nil
}

// EndEnhancement records the outcome and clears the in-flight flag. The
// session may have been discarded while the request was pending; the outcome
// is dropped in that case.
func (c *Controller) EndEnhancement(s *Session, outcome *EnhanceOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.enhancing = false
	if c.session == s {
		c.session.Outcome = outcome
	}
}
