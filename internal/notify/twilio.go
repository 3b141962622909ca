package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saferoute-nyc/saferoute/internal/config"
	apperrors "github.com/saferoute-nyc/saferoute/internal/errors"
	"github.com/saferoute-nyc/saferoute/internal/httpclient"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/telemetry"
)

const (
	defaultTwilioBaseURL = "https://api.twilio.com"
	twilioTimeout        = 10 * time.Second
)

// TwilioNotifier sends one SMS per destination through the Twilio REST API.
type TwilioNotifier struct {
	// BaseURL is the Twilio API root, overridable in tests.
	BaseURL string

	cfg     config.SMSConfig
	http    *http.Client
	log     logger.Logger
	metrics *telemetry.Provider
}

// NewTwilioNotifier creates a Twilio-backed notifier.
func NewTwilioNotifier(cfg config.SMSConfig, log logger.Logger, metrics *telemetry.Provider) *TwilioNotifier {
	return &TwilioNotifier{
		BaseURL: defaultTwilioBaseURL,
		cfg:     cfg,
		http:    httpclient.New(&httpclient.Config{Timeout: twilioTimeout}),
		log:     log,
		metrics: metrics,
	}
}

// SendPanicAlert delivers the alert to every destination it can. A subset
// of failures degrades the status to "partial"; only a total failure is an
// error.
func (n *TwilioNotifier) SendPanicAlert(ctx context.Context, to []string, lat, lng *float64) (string, error) {
	if len(to) == 0 {
		n.metrics.RecordPanicAlert(StatusFailed)
		return StatusFailed, fmt.Errorf("no destinations to notify")
	}

	message := alertMessage(lat, lng)
	sent := 0
	for _, number := range to {
		if err := n.send(ctx, number, message); err != nil {
			n.log.Warn("panic SMS failed",
				logger.String("to", number),
				logger.Error(err),
			)
			continue
		}
		sent++
	}

	var status string
	switch {
	case sent == len(to):
		status = StatusSent
	case sent > 0:
		status = StatusPartial
	default:
		n.metrics.RecordPanicAlert(StatusFailed)
		return StatusFailed, fmt.Errorf("all %d panic notifications failed", len(to))
	}

	n.log.Info("panic alert dispatched",
		logger.String("status", status),
		logger.Int("sent", sent),
		logger.Int("requested", len(to)),
	)
	n.metrics.RecordPanicAlert(status)
	return status, nil
}

func (n *TwilioNotifier) send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.BaseURL, n.cfg.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", n.cfg.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(n.cfg.AccountSID, n.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= apperrors.MinErrorStatusCode {
		return apperrors.ParseHTTPError(resp)
	}

	return nil
}
