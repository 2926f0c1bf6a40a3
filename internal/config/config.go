package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/costguardian/costguardian/internal/resource"
)

// Config holds costguardian configuration loaded from .costguardian.yaml.
type Config struct {
	Region  string `yaml:"region"`
	Profile string `yaml:"profile"`

	// Infrastructure names. All three are provisioned externally.
	LedgerTable  string `yaml:"ledger_table"`
	ReportBucket string `yaml:"report_bucket"`
	AlertTopic   string `yaml:"alert_topic_arn"`

	// Protection tag. A resource carrying this key/value pair is never
	// evaluated, regardless of its utilization.
	ProtectTagKey   string `yaml:"protect_tag_key"`
	ProtectTagValue string `yaml:"protect_tag_value"`

	Lifecycle  Lifecycle  `yaml:"lifecycle"`
	Thresholds Thresholds `yaml:"thresholds"`

	// Disabled lists resource types excluded from scanning.
	Disabled []string `yaml:"disabled"`

	LookbackDays int    `yaml:"lookback_days"`
	Concurrency  int    `yaml:"concurrency"`
	Timeout      string `yaml:"timeout"`
}

// Lifecycle holds the state-machine knobs. They are consulted only at
// the Active-to-IdleWarning and IdleWarning-to-Quarantine transition points.
// Durations are strings ("24h", "90m") so sub-day values work; grace
// comparison is timestamp-delta based, never calendar-day based.
type Lifecycle struct {
	// GracePeriod is the minimum time a resource must sit in Quarantine
	// before deletion is permitted.
	GracePeriod string `yaml:"grace_period"`

	// ChecksBeforeAction is the number of consecutive idle observations
	// required before a resource leaves Active.
	ChecksBeforeAction int `yaml:"checks_before_action"`

	// SkipQuarantine deletes an idle resource directly from IdleWarning,
	// skipping the stop/hold stage.
	SkipQuarantine bool `yaml:"skip_quarantine"`

	// EvaluationInterval is the detection cadence. A stage may advance at
	// most once per interval, which keeps repeated runs within the same
	// window from re-triggering side effects.
	EvaluationInterval string `yaml:"evaluation_interval"`
}

// GracePeriodDuration parses the grace period, defaulting to 24h.
func (l Lifecycle) GracePeriodDuration() time.Duration {
	return parseDuration(l.GracePeriod, 24*time.Hour)
}

// EvaluationIntervalDuration parses the cadence, defaulting to 24h.
func (l Lifecycle) EvaluationIntervalDuration() time.Duration {
	return parseDuration(l.EvaluationInterval, 24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Thresholds holds the per-type idle rules' tunables.
type Thresholds struct {
	CPUIdlePct          float64 `yaml:"cpu_idle_pct"`
	DBIOPSFloor         float64 `yaml:"db_iops_floor"`
	NATGWIdleBytes      float64 `yaml:"natgw_idle_bytes"`
	LBMinHealthyTargets int     `yaml:"lb_min_healthy_targets"`
	LBIdleRequests      float64 `yaml:"lb_idle_requests"`
	LBIdleBytes         float64 `yaml:"lb_idle_bytes"`
	VPCMinAgeDays       int     `yaml:"vpc_min_age_days"`
}

// Defaults mirror the shipped sample config.
const (
	DefaultProtectTagKey   = "CostGuardian"
	DefaultProtectTagValue = "Ignore"
	DefaultLookbackDays    = 1
	DefaultConcurrency     = 4
)

// Load searches for .costguardian.yaml or .costguardian.yml in the given
// directory and returns the parsed config with defaults applied. Returns
// a default Config if no file is found.
func Load(dir string) (Config, error) {
	candidates := []string{
		filepath.Join(dir, ".costguardian.yaml"),
		filepath.Join(dir, ".costguardian.yml"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.applyDefaults()
		return cfg, nil
	}

	var cfg Config
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ProtectTagKey == "" {
		c.ProtectTagKey = DefaultProtectTagKey
	}
	if c.ProtectTagValue == "" {
		c.ProtectTagValue = DefaultProtectTagValue
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = DefaultLookbackDays
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Lifecycle.ChecksBeforeAction <= 0 {
		c.Lifecycle.ChecksBeforeAction = 1
	}
	if c.Thresholds.CPUIdlePct <= 0 {
		c.Thresholds.CPUIdlePct = 5.0
	}
	if c.Thresholds.DBIOPSFloor <= 0 {
		c.Thresholds.DBIOPSFloor = 100
	}
	if c.Thresholds.NATGWIdleBytes <= 0 {
		c.Thresholds.NATGWIdleBytes = 1 << 20 // 1 MiB over the window
	}
	if c.Thresholds.LBMinHealthyTargets <= 0 {
		c.Thresholds.LBMinHealthyTargets = 1
	}
	if c.Thresholds.LBIdleRequests <= 0 {
		c.Thresholds.LBIdleRequests = 10
	}
	if c.Thresholds.LBIdleBytes <= 0 {
		c.Thresholds.LBIdleBytes = 1_000_000
	}
	if c.Thresholds.VPCMinAgeDays <= 0 {
		c.Thresholds.VPCMinAgeDays = 7
	}
}

// TimeoutDuration parses the timeout string as a duration.
func (c Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// TypeEnabled reports whether a resource type should be scanned. Entries
// match the type name or the service code, case-insensitively.
func (c Config) TypeEnabled(t resource.Type) bool {
	for _, d := range c.Disabled {
		if strings.EqualFold(d, string(t)) || strings.EqualFold(d, t.ServiceCode()) {
			return false
		}
	}
	return true
}

// Protected reports whether a tag set carries the protection pair.
func (c Config) Protected(tags map[string]string) bool {
	if len(tags) == 0 {
		return false
	}
	return tags[c.ProtectTagKey] == c.ProtectTagValue
}

// Validate checks that the fields required for a mutating run are set.
func (c Config) Validate() error {
	if c.LedgerTable == "" {
		return fmt.Errorf("ledger_table is required")
	}
	if c.ReportBucket == "" {
		return fmt.Errorf("report_bucket is required")
	}
	return nil
}
