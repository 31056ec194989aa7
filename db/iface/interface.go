// Package iface defines the contract for the filegate store. Exists as its
// own package to avoid circular dependencies between the facade and the
// engine implementation.
package iface

import (
	"context"
	"io"
	"time"

	"github.com/filegate/filegate/types"
)

// ReadOnlyDatabase covers the lookups shared by every process.
type ReadOnlyDatabase interface {
	// Users.
	User(ctx context.Context, id int64) (*types.User, error)
	UserIDs(ctx context.Context) ([]int64, error)
	UserCount(ctx context.Context) (int64, error)
	VerifiedUserCount(ctx context.Context, now time.Time) (int64, error)
	ExpiredEntitlements(ctx context.Context, now time.Time) ([]int64, error)
	// Files.
	File(ctx context.Context, postNo int64) (*types.File, error)
	Files(ctx context.Context, offset, limit int64) ([]*types.File, error)
	FileCount(ctx context.Context) (int64, error)
	TotalDownloads(ctx context.Context) (int64, error)
	// Tokens.
	Token(ctx context.Context, id string) (*types.Token, error)
	CurrentTokenID(ctx context.Context, userID int64) (string, error)
	// Channels.
	Channel(ctx context.Context, handle string) (*types.Channel, error)
	Channels(ctx context.Context, activeOnly bool) ([]*types.Channel, error)
	// Settings.
	Setting(ctx context.Context, key string) (*types.Setting, error)
	Settings(ctx context.Context) ([]*types.Setting, error)
	// Operator actions.
	RecentActions(ctx context.Context, n int64) ([]*types.Action, error)
}

// Database is the full filegate store interface. Insertions with duplicate
// primary keys fail with the store's conflict error; counter updates are
// atomic on the store side; token transitions are compare-and-set.
type Database interface {
	ReadOnlyDatabase
	io.Closer

	// Users.
	EnsureUser(ctx context.Context, id int64, username, firstName string, now time.Time) (*types.User, error)
	ApplyVerification(ctx context.Context, id int64, verifiedAt, expiresAt time.Time, verifiedBy int64) error
	ClearVerification(ctx context.Context, id int64, clearedBy int64, now time.Time) error
	RecordDelivery(ctx context.Context, userID, postNo int64, now time.Time) (newlySeen bool, consumed int64, err error)
	MarkBlocked(ctx context.Context, id int64, blocked bool, now time.Time) error

	// Files.
	NextPostNo(ctx context.Context) (int64, error)
	SaveFile(ctx context.Context, f *types.File) error
	UpdateFile(ctx context.Context, f *types.File) error
	DeleteFile(ctx context.Context, postNo int64) error

	// Tokens. MintToken atomically retires the user's outstanding
	// non-terminal token, inserts the new record, and repoints the
	// user's current-token reference.
	MintToken(ctx context.Context, t *types.Token) error
	AdvanceToken(ctx context.Context, id string, now time.Time) (status types.TokenStatus, applied bool, err error)
	CompleteToken(ctx context.Context, id string, now time.Time) (status types.TokenStatus, applied bool, err error)
	RetireToken(ctx context.Context, id string, now time.Time) error

	// Channels.
	SaveChannel(ctx context.Context, c *types.Channel) error
	UpdateChannel(ctx context.Context, c *types.Channel) error
	DeleteChannel(ctx context.Context, handle string) error

	// Settings.
	PutSetting(ctx context.Context, key, value string, by int64, now time.Time) error

	// Operator actions.
	RecordAction(ctx context.Context, a *types.Action) error

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error
}
