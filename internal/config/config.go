// Package config provides HCL configuration handling for the reconciler.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Defaults for the reference deployment.
const (
	DefaultConfigPath = "/etc/rampart/rampart.hcl"
	DefaultStateDir   = "/var/lib/rampart"
	DefaultAuditLog   = "/var/log/rampart/audit.log"
	DefaultHistoryDB  = "/var/lib/rampart/history.db"
	DefaultInterval   = 5 * time.Minute
)

// Config is the top-level structure for the reconciler configuration.
type Config struct {
	// State directory holding the snapshot files (overrides default /var/lib/rampart)
	StateDir string `hcl:"state_dir,optional" json:"state_dir,omitempty"`

	// Audit log path (append-only, human-readable)
	AuditLog string `hcl:"audit_log,optional" json:"audit_log,omitempty"`

	// Cycle history database path
	HistoryDB string `hcl:"history_db,optional" json:"history_db,omitempty"`

	// Reconciliation interval for daemon mode (e.g. "5m")
	Interval string `hcl:"interval,optional" json:"interval,omitempty"`

	Canary        *CanaryConfig        `hcl:"canary,block" json:"canary,omitempty"`
	Sets          *SetsConfig          `hcl:"sets,block" json:"sets,omitempty"`
	Gate          *GateConfig          `hcl:"gate,block" json:"gate,omitempty"`
	Bounce        *BounceConfig        `hcl:"bounce,block" json:"bounce,omitempty"`
	Supervision   *SupervisionConfig   `hcl:"supervision,block" json:"supervision,omitempty"`
	Notifications *NotificationsConfig `hcl:"notifications,block" json:"notifications,omitempty"`
	Metrics       *MetricsConfig       `hcl:"metrics,block" json:"metrics,omitempty"`
}

// CanaryConfig describes the liveness rule used for drift detection.
type CanaryConfig struct {
	// Source address matched by the canary rule. Non-routable by convention.
	Source string `hcl:"source,optional" json:"source,omitempty"`
	// Comment tag identifying the rule.
	Comment string `hcl:"comment,optional" json:"comment,omitempty"`
	// Chain and position the rule is inserted at.
	Chain    string `hcl:"chain,optional" json:"chain,omitempty"`
	Position int    `hcl:"position,optional" json:"position,omitempty"`
}

// SetsConfig controls restoration of named-set snapshots.
type SetsConfig struct {
	Enabled bool `hcl:"enabled,optional" json:"enabled"`
}

// GateConfig describes the flush-prone dependency waited on before restore.
type GateConfig struct {
	// Systemd unit name, e.g. "openvpn-client@office.service"
	Service      string `hcl:"service" json:"service"`
	PollInterval string `hcl:"poll_interval,optional" json:"poll_interval,omitempty"`
	MaxWait      string `hcl:"max_wait,optional" json:"max_wait,omitempty"`
	SettleDelay  string `hcl:"settle_delay,optional" json:"settle_delay,omitempty"`
}

// BounceConfig names the auxiliary service restarted after a restore.
type BounceConfig struct {
	// Systemd unit name, e.g. "fail2ban.service"
	Service string `hcl:"service" json:"service"`
}

// SupervisionConfig names the units SelfSupervisor re-asserts each cycle.
type SupervisionConfig struct {
	BootUnit  string `hcl:"boot_unit,optional" json:"boot_unit,omitempty"`
	TimerUnit string `hcl:"timer_unit,optional" json:"timer_unit,omitempty"`
}

// NotificationsConfig configures alert delivery channels.
type NotificationsConfig struct {
	Enabled  bool                  `hcl:"enabled,optional" json:"enabled"`
	Channels []NotificationChannel `hcl:"channel,block" json:"channels,omitempty"`
}

// NotificationChannel is a single alert delivery target.
type NotificationChannel struct {
	Name    string `hcl:"name,label" json:"name"`
	Type    string `hcl:"type" json:"type"`            // email, webhook, ntfy
	Level   string `hcl:"level,optional" json:"level"` // critical, warning, info
	Enabled bool   `hcl:"enabled,optional" json:"enabled"`

	// Email settings (delivered through the local sendmail transport)
	To       []string `hcl:"to,optional" json:"to,omitempty"`
	From     string   `hcl:"from,optional" json:"from,omitempty"`
	Sendmail string   `hcl:"sendmail,optional" json:"sendmail,omitempty"`

	// Webhook settings
	WebhookURL string `hcl:"webhook_url,optional" json:"webhook_url,omitempty"`

	// ntfy settings
	Server string `hcl:"server,optional" json:"server,omitempty"`
	Topic  string `hcl:"topic,optional" json:"topic,omitempty"`
}

// MetricsConfig controls the Prometheus exposition endpoint in daemon mode.
type MetricsConfig struct {
	Enabled bool   `hcl:"enabled,optional" json:"enabled"`
	Listen  string `hcl:"listen,optional" json:"listen,omitempty"`
}

// Load reads and decodes an HCL config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes decodes config from bytes, applying defaults.
func LoadBytes(filename string, data []byte) (*Config, error) {
	var cfg Config
	if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with all defaults applied and no file input.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if c.AuditLog == "" {
		c.AuditLog = DefaultAuditLog
	}
	if c.HistoryDB == "" {
		c.HistoryDB = DefaultHistoryDB
	}
	if c.Canary == nil {
		c.Canary = &CanaryConfig{}
	}
	if c.Canary.Source == "" {
		c.Canary.Source = "198.51.100.254/32"
	}
	if c.Canary.Comment == "" {
		c.Canary.Comment = "rampart-canary"
	}
	if c.Canary.Chain == "" {
		c.Canary.Chain = "INPUT"
	}
	if c.Canary.Position == 0 {
		c.Canary.Position = 1
	}
	if c.Supervision == nil {
		c.Supervision = &SupervisionConfig{}
	}
	if c.Supervision.BootUnit == "" {
		c.Supervision.BootUnit = "rampart.service"
	}
	if c.Supervision.TimerUnit == "" {
		c.Supervision.TimerUnit = "rampart.timer"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if _, err := c.CycleInterval(); err != nil {
		return fmt.Errorf("interval: %w", err)
	}
	if c.Gate != nil {
		if c.Gate.Service == "" {
			return fmt.Errorf("gate block requires a service name")
		}
		for name, s := range map[string]string{
			"poll_interval": c.Gate.PollInterval,
			"max_wait":      c.Gate.MaxWait,
			"settle_delay":  c.Gate.SettleDelay,
		} {
			if _, err := parseDuration(s, 0); err != nil {
				return fmt.Errorf("gate %s: %w", name, err)
			}
		}
	}
	if c.Bounce != nil && c.Bounce.Service == "" {
		return fmt.Errorf("bounce block requires a service name")
	}
	if c.Notifications != nil {
		for _, ch := range c.Notifications.Channels {
			switch ch.Type {
			case "email", "webhook", "ntfy":
			default:
				return fmt.Errorf("channel %q: unknown type %q", ch.Name, ch.Type)
			}
		}
	}
	return nil
}

// CycleInterval returns the reconciliation interval for daemon mode.
func (c *Config) CycleInterval() (time.Duration, error) {
	return parseDuration(c.Interval, DefaultInterval)
}

// GatePollInterval returns the dependency poll interval.
func (g *GateConfig) GatePollInterval() time.Duration {
	d, _ := parseDuration(g.PollInterval, 2*time.Second)
	return d
}

// GateMaxWait returns the bounded wait ceiling.
func (g *GateConfig) GateMaxWait() time.Duration {
	d, _ := parseDuration(g.MaxWait, 90*time.Second)
	return d
}

// GateSettleDelay returns the post-active settle delay.
func (g *GateConfig) GateSettleDelay() time.Duration {
	d, _ := parseDuration(g.SettleDelay, 5*time.Second)
	return d
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
