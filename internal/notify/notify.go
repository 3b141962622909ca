// Package notify dispatches panic alerts to trusted contacts over SMS.
package notify

import (
	"context"
	"fmt"

	"github.com/saferoute-nyc/saferoute/internal/config"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/telemetry"
)

// Status values reported by notifiers.
const (
	StatusSimulated = "simulated"
	StatusSent      = "sent"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Notifier sends a panic alert to the given phone numbers. The coordinate
// pointers are nil when the caller's device had no location fix.
type Notifier interface {
	SendPanicAlert(ctx context.Context, to []string, lat, lng *float64) (string, error)
}

// New picks a notifier from config: Twilio when selected and fully
// credentialed, the logging notifier otherwise.
func New(cfg config.SMSConfig, log logger.Logger, metrics *telemetry.Provider) Notifier {
	if cfg.Provider == "twilio" && cfg.AccountSID != "" && cfg.AuthToken != "" {
		return NewTwilioNotifier(cfg, log, metrics)
	}
	if cfg.Provider == "twilio" {
		log.Warn("twilio provider selected without credentials, falling back to log notifier")
	}
	return NewLogNotifier(log, metrics)
}

// alertMessage renders the SMS body, carrying a maps link when a location
// fix is available.
func alertMessage(lat, lng *float64) string {
	if lat != nil && lng != nil {
		return fmt.Sprintf(
			"SafeRoute panic alert! Last known location: https://maps.google.com/?q=%g,%g",
			*lat, *lng,
		)
	}
	return "SafeRoute panic alert! Location unavailable."
}

// LogNotifier writes each alert to the log instead of sending it. It is
// the default provider for development environments.
type LogNotifier struct {
	log     logger.Logger
	metrics *telemetry.Provider
}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier(log logger.Logger, metrics *telemetry.Provider) *LogNotifier {
	return &LogNotifier{log: log, metrics: metrics}
}

// SendPanicAlert logs one line per destination and reports "simulated".
func (n *LogNotifier) SendPanicAlert(_ context.Context, to []string, lat, lng *float64) (string, error) {
	message := alertMessage(lat, lng)
	for _, number := range to {
		n.log.Info("simulated panic SMS",
			logger.String("to", number),
			logger.String("message", message),
		)
	}

	n.metrics.RecordPanicAlert(StatusSimulated)
	return StatusSimulated, nil
}
