// Package notify delivers alert transitions to people and subscribers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"airspace_fan/internal/events"
	"airspace_fan/internal/logger"
	"airspace_fan/internal/models"
	"airspace_fan/internal/threshold"
)

var (
	_ threshold.Sink = LogSink{}
	_ threshold.Sink = BrokerSink{}
	_ threshold.Sink = Multi{}
)

// Message renders the user-facing subject and body for a change.
func Message(c models.AlertChange) (subject, body string) {
	temp := "unknown"
	if c.TempF != nil {
		temp = fmt.Sprintf("%.0f°F", *c.TempF)
	}
	switch c.To {
	case models.AlertTooHot, models.AlertTooCold:
		word := "hot"
		if c.To == models.AlertTooCold {
			word = "cold"
		}
		subject = fmt.Sprintf("It's %s outside (%s)", word, temp)
		body = fmt.Sprintf("The outdoor temperature is %s, outside your %.0f to %.0f°F range.",
			temp, c.Config.LowBound, c.Config.HighBound)
		if c.FansRunning {
			body += " Turn the fan off?"
		}
	case models.AlertNormal:
		subject = fmt.Sprintf("Outdoor temperature back in range (%s)", temp)
		body = fmt.Sprintf("The outdoor temperature is %s, within your %.0f to %.0f°F range.",
			temp, c.Config.LowBound, c.Config.HighBound)
	default:
		subject = "Outdoor temperature alerts paused"
		body = "No usable temperature reading or alerts are disabled."
	}
	return subject, body
}

// LogSink writes every change to the log.
type LogSink struct {
	Log *logger.Logger
}

// Notify implements threshold.Sink.
func (s LogSink) Notify(_ context.Context, c models.AlertChange) error {
	subject, _ := Message(c)
	logger.OrNop(s.Log).Infow("alert_notification",
		"from", c.From,
		"to", c.To,
		"fans_running", c.FansRunning,
		"subject", subject,
	)
	return nil
}

// BrokerSink publishes changes as alert_changed events.
type BrokerSink struct {
	Broker *events.Broker[models.Event]
}

// Notify implements threshold.Sink.
func (s BrokerSink) Notify(_ context.Context, c models.AlertChange) error {
	s.Broker.Publish(models.Event{
		ID:    uuid.NewString(),
		Kind:  models.EventAlertChanged,
		At:    time.Now(),
		Alert: &c,
	})
	return nil
}

// Multi hands a change to every sink and joins their errors.
type Multi []threshold.Sink

// Notify implements threshold.Sink.
func (m Multi) Notify(ctx context.Context, c models.AlertChange) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to threshold.Sink.
type Func func(ctx context.Context, c models.AlertChange) error

// Notify implements threshold.Sink.
func (f Func) Notify(ctx context.Context, c models.AlertChange) error { return f(ctx, c) }
