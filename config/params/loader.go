package params

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

var log = logrus.WithField("prefix", "params")

// LoadFromFile merges YAML overrides from the given path into a copy of the
// active config and installs it. Unknown keys are rejected so typos in the
// operator's file surface at start-up rather than silently falling back to
// defaults.
func LoadFromFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := ioutil.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	cfg := Get().Copy()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return errors.Wrap(err, "parse config file")
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	log.WithField("path", path).Info("Loaded configuration file")
	Override(cfg)
	return nil
}

func (c *Config) validate() error {
	if c.VerificationPeriodHours < c.VerificationPeriodMinHours ||
		c.VerificationPeriodHours > c.VerificationPeriodMaxHours {
		return errors.Errorf("verification-period-hours %d outside range %d-%d",
			c.VerificationPeriodHours, c.VerificationPeriodMinHours, c.VerificationPeriodMaxHours)
	}
	if c.FileAccessLimit < c.FileAccessLimitMin {
		return errors.Errorf("file-access-limit %d below minimum %d", c.FileAccessLimit, c.FileAccessLimitMin)
	}
	if c.TokenTTLSeconds <= 0 {
		return errors.New("verification-token-ttl-seconds must be positive")
	}
	if c.AutoDeleteSeconds <= 0 {
		return errors.New("auto-delete-seconds must be positive")
	}
	if c.MinTraversalSeconds < 0 || c.MinDwellSeconds < 0 {
		return errors.New("dwell floors must not be negative")
	}
	return nil
}
