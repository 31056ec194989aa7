package types

import (
	"time"
)

// Setting is a free-form operator setting. Values are stored as strings and
// parsed on read; unknown or out-of-range values fall back to compiled
// defaults.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy int64     `json:"updated_by"`
}

// Setting keys understood by the platform.
const (
	SettingFilePassword       = "file_password"
	SettingVerificationPeriod = "verification_period_hours"
	SettingFileAccessLimit    = "file_access_limit"
	SettingShortlinkAPIKey    = "shortlink_api_key"
	SettingShortlinkBaseURL   = "shortlink_base_url"
	SettingHowToVerifyLink    = "how_to_verify_link"
	SettingTokenTTLSeconds    = "verification_token_ttl_seconds"
	SettingAutoDeleteSeconds  = "auto_delete_seconds"
	SettingMinTraversalSecs   = "min_traversal_seconds"
	SettingMinDwellSecs       = "min_dwell_seconds"
)

// KnownSettingKeys lists every key the settings editor accepts.
var KnownSettingKeys = []string{
	SettingFilePassword,
	SettingVerificationPeriod,
	SettingFileAccessLimit,
	SettingShortlinkAPIKey,
	SettingShortlinkBaseURL,
	SettingHowToVerifyLink,
	SettingTokenTTLSeconds,
	SettingAutoDeleteSeconds,
	SettingMinTraversalSecs,
	SettingMinDwellSecs,
}
