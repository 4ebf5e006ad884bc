package models

import "time"

// AlertState is the outdoor temperature condition relative to the user's bounds.
type AlertState string

const (
	AlertNormal  AlertState = "normal"
	AlertTooHot  AlertState = "too_hot"
	AlertTooCold AlertState = "too_cold"
	AlertUnknown AlertState = "unknown"
)

// ThresholdConfig holds the user's outdoor temperature bounds in °F.
type ThresholdConfig struct {
	LowBound  float64 `json:"low_bound"`
	HighBound float64 `json:"high_bound"`
	Enabled   bool    `json:"enabled"`
}

// AlertChange is emitted when the alert state transitions.
type AlertChange struct {
	From        AlertState      `json:"from"`
	To          AlertState      `json:"to"`
	TempF       *float64        `json:"temp_f,omitempty"`
	Config      ThresholdConfig `json:"config"`
	FansRunning bool            `json:"fans_running"`
	At          time.Time       `json:"at"`
}

// BackgroundWindow is a pending execution window request submitted to the host.
type BackgroundWindow struct {
	ID            string    `json:"id"`
	EarliestBegin time.Time `json:"earliest_begin"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
