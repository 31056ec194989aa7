// Package settings resolves operator-editable settings from the store with
// a short-lived cache, falling back to the compiled defaults in
// config/params when a key is absent or its value fails validation.
package settings

import (
	"context"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/types"
)

var log = logrus.WithField("prefix", "settings")

// Resolver reads settings through a TTL cache so hot paths do not hit the
// store on every request, while operator edits still take effect within the
// cache lifetime across all three processes.
type Resolver struct {
	store db.ReadOnlyDatabase
	cache *gocache.Cache
}

// NewResolver builds a resolver over the store.
func NewResolver(store db.ReadOnlyDatabase) *Resolver {
	ttl := params.Get().SettingsCacheTTL
	return &Resolver{
		store: store,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Invalidate drops a cached key so the next read hits the store. Called by
// the settings editor after a write.
func (r *Resolver) Invalidate(key string) {
	r.cache.Delete(key)
}

// raw returns the stored string value and whether the key exists. Store
// errors other than absence degrade to the compiled default with a log.
func (r *Resolver) raw(ctx context.Context, key string) (string, bool) {
	if v, ok := r.cache.Get(key); ok {
		s := v.(string)
		return s, s != ""
	}
	setting, err := r.store.Setting(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).WithField("key", key).Warn("Could not read setting, using default")
			return "", false
		}
		// Cache absence too, as the empty string.
		r.cache.Set(key, "", gocache.DefaultExpiration)
		return "", false
	}
	r.cache.Set(key, setting.Value, gocache.DefaultExpiration)
	return setting.Value, setting.Value != ""
}

// FilePassword returns the current archive password caption value.
func (r *Resolver) FilePassword(ctx context.Context) string {
	if v, ok := r.raw(ctx, types.SettingFilePassword); ok {
		return v
	}
	return params.Get().FilePassword
}

// VerificationPeriod returns the entitlement window granted on a successful
// verification.
func (r *Resolver) VerificationPeriod(ctx context.Context) time.Duration {
	cfg := params.Get()
	if v, ok := r.raw(ctx, types.SettingVerificationPeriod); ok {
		hours, err := strconv.Atoi(v)
		if err == nil && hours >= cfg.VerificationPeriodMinHours && hours <= cfg.VerificationPeriodMaxHours {
			return time.Duration(hours) * time.Hour
		}
		log.WithField("value", v).Warn("Ignoring out-of-range verification_period_hours setting")
	}
	return cfg.VerificationPeriod()
}

// FileAccessLimit returns the per-window quota.
func (r *Resolver) FileAccessLimit(ctx context.Context) int64 {
	cfg := params.Get()
	if v, ok := r.raw(ctx, types.SettingFileAccessLimit); ok {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err == nil && limit >= cfg.FileAccessLimitMin {
			return limit
		}
		log.WithField("value", v).Warn("Ignoring out-of-range file_access_limit setting")
	}
	return cfg.FileAccessLimit
}

// TokenTTL returns the verification token lifetime.
func (r *Resolver) TokenTTL(ctx context.Context) time.Duration {
	return r.seconds(ctx, types.SettingTokenTTLSeconds, params.Get().TokenTTL())
}

// AutoDeleteTTL returns how long a delivered file survives before the
// scheduled deletion fires.
func (r *Resolver) AutoDeleteTTL(ctx context.Context) time.Duration {
	return r.seconds(ctx, types.SettingAutoDeleteSeconds, params.Get().AutoDeleteTTL())
}

// MinTraversal returns the token-creation dwell floor.
func (r *Resolver) MinTraversal(ctx context.Context) time.Duration {
	return r.seconds(ctx, types.SettingMinTraversalSecs, params.Get().MinTraversal())
}

// MinDwell returns the token-advance dwell floor.
func (r *Resolver) MinDwell(ctx context.Context) time.Duration {
	return r.seconds(ctx, types.SettingMinDwellSecs, params.Get().MinDwell())
}

// ShortlinkAPIKey returns the shortlink provider credential, empty when the
// provider is not configured.
func (r *Resolver) ShortlinkAPIKey(ctx context.Context) string {
	v, _ := r.raw(ctx, types.SettingShortlinkAPIKey)
	return v
}

// ShortlinkBaseURL returns the shortlink provider endpoint, empty when the
// provider is not configured.
func (r *Resolver) ShortlinkBaseURL(ctx context.Context) string {
	v, _ := r.raw(ctx, types.SettingShortlinkBaseURL)
	return v
}

// HowToVerifyLink returns the optional tutorial URL shown on the verify
// screen.
func (r *Resolver) HowToVerifyLink(ctx context.Context) string {
	if v, ok := r.raw(ctx, types.SettingHowToVerifyLink); ok {
		return v
	}
	return params.Get().HowToVerifyLink
}

func (r *Resolver) seconds(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if v, ok := r.raw(ctx, key); ok {
		secs, err := strconv.Atoi(v)
		if err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		log.WithFields(logrus.Fields{"key": key, "value": v}).Warn("Ignoring malformed seconds setting")
	}
	return fallback
}

// Validate checks an operator-submitted value for a known key. Used by the
// settings editor before committing.
func Validate(key, value string) error {
	cfg := params.Get()
	switch key {
	case types.SettingVerificationPeriod:
		hours, err := strconv.Atoi(value)
		if err != nil || hours < cfg.VerificationPeriodMinHours || hours > cfg.VerificationPeriodMaxHours {
			return errors.Errorf("%s must be an integer between %d and %d",
				key, cfg.VerificationPeriodMinHours, cfg.VerificationPeriodMaxHours)
		}
	case types.SettingFileAccessLimit:
		limit, err := strconv.ParseInt(value, 10, 64)
		if err != nil || limit < cfg.FileAccessLimitMin {
			return errors.Errorf("%s must be an integer of at least %d", key, cfg.FileAccessLimitMin)
		}
	case types.SettingTokenTTLSeconds, types.SettingAutoDeleteSeconds:
		secs, err := strconv.Atoi(value)
		if err != nil || secs <= 0 {
			return errors.Errorf("%s must be a positive integer of seconds", key)
		}
	case types.SettingMinTraversalSecs, types.SettingMinDwellSecs:
		secs, err := strconv.Atoi(value)
		if err != nil || secs < 0 {
			return errors.Errorf("%s must be a non-negative integer of seconds", key)
		}
	case types.SettingFilePassword, types.SettingShortlinkAPIKey,
		types.SettingShortlinkBaseURL, types.SettingHowToVerifyLink:
		// Free-form.
	default:
		return errors.Errorf("unknown setting key %q", key)
	}
	return nil
}
