package types

import (
	"time"
)

// Action is one entry in the append-only operator action log.
type Action struct {
	ID      string            `json:"id"`
	AdminID int64             `json:"admin_id"`
	Kind    string            `json:"kind"`
	Details map[string]string `json:"details"`
	At      time.Time         `json:"at"`
}

// Operator action kinds recorded by the admin bot.
const (
	ActionFileUploaded   = "file_uploaded"
	ActionFileDeleted    = "file_deleted"
	ActionChannelAdded   = "channel_added"
	ActionChannelRemoved = "channel_removed"
	ActionChannelToggled = "channel_toggled"
	ActionSettingChanged = "setting_changed"
	ActionUserVerified   = "user_verified"
	ActionUserUnverified = "user_unverified"
	ActionBroadcast      = "broadcast"
)
