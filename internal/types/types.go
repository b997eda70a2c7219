package types

import (
	"time"
)

// Kind identifies which payload a history entry carries
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Valid reports whether k is one of the supported kinds
func (k Kind) Valid() bool {
	return k == KindText || k == KindImage
}

// HistoryEntry is one recorded clipboard capture.
// Exactly one of Text and ImageData is set, selected by Kind.
type HistoryEntry struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"type"`
	Text        string `json:"text,omitempty"`
	ImageData   string `json:"imageData,omitempty"` // data URL
	CreatedAt   int64  `json:"timestamp"`           // epoch millis
	DisplayTime string `json:"time"`
}

// Payload returns the populated payload for the entry's kind
func (e *HistoryEntry) Payload() string {
	if e.Kind == KindImage {
		return e.ImageData
	}
	return e.Text
}

// Created returns CreatedAt as a time.Time
func (e *HistoryEntry) Created() time.Time {
	return time.UnixMilli(e.CreatedAt)
}

// Matches reports whether the entry holds exactly this kind and payload
func (e *HistoryEntry) Matches(kind Kind, payload string) bool {
	if e == nil {
		return false
	}
	return e.Kind == kind && e.Payload() == payload
}

// Snapshot is one observation of the system clipboard. Empty fields mean absent.
type Snapshot struct {
	Text      string `json:"text,omitempty"`
	ImageData string `json:"imageData,omitempty"`
}

// Empty reports whether neither text nor image was observed
func (s Snapshot) Empty() bool {
	return s.Text == "" && s.ImageData == ""
}

// Primary returns the highest priority content: text wins over image.
func (s Snapshot) Primary() (Kind, string, bool) {
	switch {
	case s.Text != "":
		return KindText, s.Text, true
	case s.ImageData != "":
		return KindImage, s.ImageData, true
	default:
		return "", "", false
	}
}

// LastSeen is the poller's view of the most recent text and image payloads
type LastSeen struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// MonitoringStatus represents the current state of clipboard monitoring
type MonitoringStatus struct {
	IsRunning     bool      `json:"is_running"`
	Backend       string    `json:"backend"`
	Interval      string    `json:"interval"`
	LastActivity  time.Time `json:"last_activity"`
	LastCapture   time.Time `json:"last_capture"`
	Captured      int       `json:"captured"`
	SkippedTicks  int       `json:"skipped_ticks"`
	ErrorCount    int       `json:"error_count"`
	LastError     string    `json:"last_error,omitempty"`
	HostRecreated int       `json:"host_recreated"`
}
