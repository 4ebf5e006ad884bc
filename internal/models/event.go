package models

import "time"

// EventKind names a state-change event published to subscribers.
type EventKind string

const (
	EventFanUpdated   EventKind = "fan_updated"
	EventFanStale     EventKind = "fan_stale"
	EventFanFault     EventKind = "fan_fault"
	EventScanStarted  EventKind = "scan_started"
	EventScanProgress EventKind = "scan_progress"
	EventScanFinished EventKind = "scan_finished"
	EventAlertChanged EventKind = "alert_changed"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	ID       string       `json:"id"`
	Kind     EventKind    `json:"kind"`
	At       time.Time    `json:"at"`
	Fan      *FanStatus   `json:"fan,omitempty"`
	Alert    *AlertChange `json:"alert,omitempty"`
	Progress float64      `json:"progress,omitempty"`
}

// LogEntry is a single audit record of a user command or fault transition.
type LogEntry struct {
	EntryID     string    `json:"entry_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`               // SPEED | TIMER | FAULT | ALERT | SCAN
	MACAddr     string    `json:"mac_addr,omitempty"` // empty for house-wide entries
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

// Log entry types.
const (
	LogSpeed = "SPEED"
	LogTimer = "TIMER"
	LogFault = "FAULT"
	LogAlert = "ALERT"
	LogScan  = "SCAN"
)
