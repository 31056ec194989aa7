package redis

import (
	"strconv"
)

// Key layout. Users, files, and tokens are hashes so counters and state
// transitions can be updated server side; channels, settings, and operator
// actions are encoded blobs. Index keys give listings and counts without
// scanning the keyspace.
const (
	userKeyPrefix    = "fg:user:"
	userSeenSuffix   = ":seen"
	userTokenSuffix  = ":token"
	tokenKeyPrefix   = "fg:token:"
	fileKeyPrefix    = "fg:file:"
	channelKeyPrefix = "fg:channel:"
	settingKeyPrefix = "fg:setting:"

	usersIndexKey       = "fg:users"
	usersExpiryIndexKey = "fg:users:expiry"
	filesIndexKey       = "fg:files:index"
	filesPostCounterKey = "fg:files:nextpost"
	channelsIndexKey    = "fg:channels"
	settingsIndexKey    = "fg:settings"
	actionsKey          = "fg:actions"
	downloadsCounterKey = "fg:stats:downloads"
)

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

func userSeenKey(id int64) string {
	return userKey(id) + userSeenSuffix
}

func userTokenKey(id int64) string {
	return userKey(id) + userTokenSuffix
}

func tokenKey(id string) string {
	return tokenKeyPrefix + id
}

func fileKey(postNo int64) string {
	return fileKeyPrefix + strconv.FormatInt(postNo, 10)
}

func channelKey(handle string) string {
	return channelKeyPrefix + handle
}

func settingKey(key string) string {
	return settingKeyPrefix + key
}
