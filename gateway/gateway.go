// Package gateway defines the chat-gateway contract consumed by the
// entitlement pipeline and the bots. The core produces plain strings plus
// structural button annotations; platform escaping is the adapter's problem.
package gateway

import (
	"context"

	"github.com/pkg/errors"

	"github.com/filegate/filegate/types"
)

// Gateway errors. Adapters map platform failures onto these sentinels so
// callers can classify with errors.Is.
var (
	// ErrBlocked marks a recipient who has blocked the bot.
	ErrBlocked = errors.New("recipient has blocked the bot")
	// ErrTransient marks retryable transport failures.
	ErrTransient = errors.New("transient gateway failure")
)

// Button is one inline keyboard button. Exactly one of URL or CallbackData
// is set.
type Button struct {
	Label        string
	URL          string
	CallbackData string
}

// Keyboard is an inline keyboard laid out as rows of buttons.
type Keyboard [][]Button

// Row builds a single keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Message is an outbound text message.
type Message struct {
	ChatID            int64
	Text              string
	Keyboard          Keyboard
	DisableWebPreview bool
}

// Sent identifies a delivered message for later edit or delete.
type Sent struct {
	ChatID    int64
	MessageID int
}

// Gateway is the chat platform surface the core consumes.
type Gateway interface {
	// Send delivers a text message with an optional inline keyboard.
	Send(ctx context.Context, msg Message) (Sent, error)
	// Edit replaces the text and keyboard of a previously sent message.
	Edit(ctx context.Context, ref Sent, text string, kb Keyboard) error
	// Delete removes a message.
	Delete(ctx context.Context, ref Sent) error
	// Copy re-sends a stored message to the given chat with a caption.
	// This is the sole archive-store operation.
	Copy(ctx context.Context, from types.Coordinate, toChat int64, caption string) (Sent, error)
	// MemberStatus returns the raw membership status string of a user in a
	// channel identified by its public handle.
	MemberStatus(ctx context.Context, channelHandle string, userID int64) (string, error)
}
