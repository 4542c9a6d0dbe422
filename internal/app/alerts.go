package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/ioprotolab/simhub/internal/events"
	"github.com/ioprotolab/simhub/internal/payload"
)

// alertSink implements rules.AlertSink by logging the alert and mirroring
// it onto the event bus as an "alert" event, so both the log file and any
// websocket subscriber (internal/httpapi) observe a rule's send_alert
// action the same way they observe every other application event.
type alertSink struct {
	log *zap.Logger
	bus events.Bus
}

func (a alertSink) SendAlert(severity, message string, data payload.Value) error {
	a.log.Warn("alert", zap.String("severity", severity), zap.String("message", message))
	if a.bus == nil {
		return nil
	}
	return a.bus.Publish(events.Event{
		Type:      "alert",
		Source:    "rules",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"severity": severity,
			"message":  message,
			"payload":  payload.ToAny(data),
		},
	})
}
