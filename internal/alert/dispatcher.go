package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"grimm.is/rampart/internal/config"
	"grimm.is/rampart/internal/logging"
)

// Level constants
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Notification represents a notification event.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// MailTransport pipes a message into a local mail submission binary.
// The production implementation is netfilter.RealCommandRunner.
type MailTransport interface {
	RunInput(input string, name string, args ...string) error
}

// Dispatcher fans a notification out to all enabled channels.
type Dispatcher struct {
	mu     sync.RWMutex
	cfg    *config.NotificationsConfig
	mail   MailTransport
	client *http.Client
	logger *logging.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(cfg *config.NotificationsConfig, mail MailTransport, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		cfg:    cfg,
		mail:   mail,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger.WithComponent("alert"),
	}
}

// UpdateConfig swaps the channel configuration.
func (d *Dispatcher) UpdateConfig(cfg *config.NotificationsConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
}

// Send dispatches a notification to all enabled and relevant channels.
// Delivery failures are logged, never retried.
func (d *Dispatcher) Send(ctx context.Context, n Notification) {
	d.mu.RLock()
	cfg := d.cfg
	d.mu.RUnlock()

	if cfg == nil || !cfg.Enabled {
		return
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	var wg sync.WaitGroup
	for _, ch := range cfg.Channels {
		if !ch.Enabled {
			continue
		}
		if !shouldSend(n.Level, ch.Level) {
			continue
		}

		wg.Add(1)
		go func(channel config.NotificationChannel) {
			defer wg.Done()
			if err := d.sendToChannel(ctx, channel, n); err != nil {
				d.logger.Error("failed to send notification",
					"channel", channel.Name,
					"type", channel.Type,
					"error", err)
			}
		}(ch)
	}
	wg.Wait()
}

// shouldSend checks if a message level meets the channel's minimum level.
func shouldSend(msgLevel, chanLevel string) bool {
	if chanLevel == "" {
		return true
	}

	levels := map[string]int{
		LevelInfo:     1,
		LevelWarning:  2,
		LevelCritical: 3,
	}

	m := levels[strings.ToLower(msgLevel)]
	c := levels[strings.ToLower(chanLevel)]

	return m >= c
}

func (d *Dispatcher) sendToChannel(ctx context.Context, ch config.NotificationChannel, n Notification) error {
	switch strings.ToLower(ch.Type) {
	case "email":
		return d.sendEmail(ch, n)
	case "webhook":
		return d.sendWebhook(ctx, ch, n)
	case "ntfy":
		return d.sendNtfy(ctx, ch, n)
	default:
		return fmt.Errorf("unknown channel type: %s", ch.Type)
	}
}

// Channel implementations

func (d *Dispatcher) sendEmail(ch config.NotificationChannel, n Notification) error {
	if len(ch.To) == 0 {
		return fmt.Errorf("missing recipient list")
	}
	if d.mail == nil {
		return fmt.Errorf("no mail transport configured")
	}

	sendmail := ch.Sendmail
	if sendmail == "" {
		sendmail = "/usr/sbin/sendmail"
	}
	from := ch.From
	if from == "" {
		from = "rampart@localhost"
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\n", from)
	fmt.Fprintf(&msg, "To: %s\n", strings.Join(ch.To, ", "))
	fmt.Fprintf(&msg, "Subject: %s\n\n", n.Title)
	msg.WriteString(n.Message)

	return d.mail.RunInput(msg.String(), sendmail, "-t", "-f", from)
}

func (d *Dispatcher) sendWebhook(ctx context.Context, ch config.NotificationChannel, n Notification) error {
	if ch.WebhookURL == "" {
		return fmt.Errorf("missing webhook_url")
	}

	payload := map[string]interface{}{
		"text": fmt.Sprintf("*%s*\n%s\n_Level: %s_", n.Title, n.Message, n.Level),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook failed with status: %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) sendNtfy(ctx context.Context, ch config.NotificationChannel, n Notification) error {
	server := ch.Server
	if server == "" {
		server = "https://ntfy.sh"
	}
	if ch.Topic == "" {
		return fmt.Errorf("missing topic for ntfy")
	}

	url := strings.TrimSuffix(server, "/") + "/" + ch.Topic

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(n.Message))
	if err != nil {
		return err
	}
	req.Header.Set("Title", n.Title)

	switch n.Level {
	case LevelCritical:
		req.Header.Set("Priority", "high")
		req.Header.Set("Tags", "rotating_light")
	case LevelWarning:
		req.Header.Set("Priority", "default")
		req.Header.Set("Tags", "warning")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy failed with status: %d", resp.StatusCode)
	}
	return nil
}
