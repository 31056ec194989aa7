// Package params holds the compiled configuration defaults shared by the
// filegate processes. Values here are process-start defaults; the
// operator-editable subset is overridden at read time by the store-backed
// settings resolver.
package params

import (
	"time"

	"github.com/mohae/deepcopy"
)

// Config groups every tunable the filegate processes consult.
type Config struct {
	// Operator-editable defaults, overridden by store settings.
	FilePassword            string `yaml:"file-password"`
	VerificationPeriodHours int    `yaml:"verification-period-hours"`
	FileAccessLimit         int64  `yaml:"file-access-limit"`
	TokenTTLSeconds         int    `yaml:"verification-token-ttl-seconds"`
	AutoDeleteSeconds       int    `yaml:"auto-delete-seconds"`
	MinTraversalSeconds     int    `yaml:"min-traversal-seconds"`
	MinDwellSeconds         int    `yaml:"min-dwell-seconds"`
	HowToVerifyLink         string `yaml:"how-to-verify-link"`

	// Validation bounds for the operator-editable values.
	VerificationPeriodMinHours int   `yaml:"-"`
	VerificationPeriodMaxHours int   `yaml:"-"`
	FileAccessLimitMin         int64 `yaml:"-"`

	// Verification web flow countdown shown to the browser. The server-side
	// dwell floors are the security control, not this timer.
	CountdownSeconds int `yaml:"countdown-seconds"`

	// External-call retry schedule for transient failures.
	RetrySchedule []time.Duration `yaml:"-"`

	// Broadcast fan-out limits per bot token.
	BroadcastRatePerSecond float64 `yaml:"broadcast-rate-per-second"`
	BroadcastBurst         int64   `yaml:"broadcast-burst"`

	// Cache lifetimes.
	MembershipCacheTTL time.Duration `yaml:"membership-cache-ttl"`
	SettingsCacheTTL   time.Duration `yaml:"settings-cache-ttl"`
	FileCacheSize      int           `yaml:"file-cache-size"`

	// Operator wizard scratch sessions.
	WizardSessionTTL time.Duration `yaml:"wizard-session-ttl"`
}

// VerificationPeriod returns the default verification window as a duration.
func (c *Config) VerificationPeriod() time.Duration {
	return time.Duration(c.VerificationPeriodHours) * time.Hour
}

// TokenTTL returns the default token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLSeconds) * time.Second
}

// AutoDeleteTTL returns the delivered-file lifetime as a duration.
func (c *Config) AutoDeleteTTL() time.Duration {
	return time.Duration(c.AutoDeleteSeconds) * time.Second
}

// MinTraversal returns the token-creation dwell floor as a duration.
func (c *Config) MinTraversal() time.Duration {
	return time.Duration(c.MinTraversalSeconds) * time.Second
}

// MinDwell returns the token-advance dwell floor as a duration.
func (c *Config) MinDwell() time.Duration {
	return time.Duration(c.MinDwellSeconds) * time.Second
}

func defaultConfig() *Config {
	return &Config{
		VerificationPeriodHours: 24,
		FileAccessLimit:         3,
		TokenTTLSeconds:         600,
		AutoDeleteSeconds:       600,
		MinTraversalSeconds:     5,
		MinDwellSeconds:         3,

		VerificationPeriodMinHours: 1,
		VerificationPeriodMaxHours: 8760,
		FileAccessLimitMin:         1,

		CountdownSeconds: 5,

		RetrySchedule: []time.Duration{
			50 * time.Millisecond,
			250 * time.Millisecond,
			time.Second,
		},

		BroadcastRatePerSecond: 20,
		BroadcastBurst:         20,

		MembershipCacheTTL: 60 * time.Second,
		SettingsCacheTTL:   30 * time.Second,
		FileCacheSize:      512,

		WizardSessionTTL: 10 * time.Minute,
	}
}

var activeConfig = defaultConfig()

// Get retrieves the active configuration.
func Get() *Config {
	return activeConfig
}

// Override replaces the active configuration. Intended for process start-up
// and tests, before any request is served.
func Override(c *Config) {
	activeConfig = c
}

// OverrideWithReset replaces the active configuration and returns a function
// restoring the previous one. Test helper.
func OverrideWithReset(c *Config) func() {
	prev := activeConfig
	Override(c)
	return func() {
		Override(prev)
	}
}

// Copy returns a deep copy of the config for safe mutation.
func (c *Config) Copy() *Config {
	return deepcopy.Copy(c).(*Config)
}
