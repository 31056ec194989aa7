// Package mock provides an in-memory gateway for tests.
package mock

import (
	"context"
	"strconv"
	"sync"

	"github.com/filegate/filegate/gateway"
	"github.com/filegate/filegate/types"
)

// SentRecord captures one Send call.
type SentRecord struct {
	Msg gateway.Message
	Ref gateway.Sent
}

// CopyRecord captures one Copy call.
type CopyRecord struct {
	From    types.Coordinate
	ToChat  int64
	Caption string
	Ref     gateway.Sent
}

// Gateway is a scriptable in-memory implementation of gateway.Gateway.
// Zero value is usable: every send succeeds, every user is a member of
// nothing.
type Gateway struct {
	mu sync.Mutex

	nextMessageID int

	Sends      []SentRecord
	Copies     []CopyRecord
	CopiesFrom []CopyFromRecord
	Edits      []gateway.Sent
	Deletes    []gateway.Sent

	// Statuses maps "handle:userID" to a raw member status. Missing
	// entries yield "left".
	Statuses map[string]string

	// Error hooks. When set, the corresponding call fails with the given
	// error after ErrAfter successful calls (0 means fail immediately).
	SendErr         error
	SendErrAfter    int
	CopyErr         error
	CopyErrAfter    int
	DeleteErr       error
	MemberStatusErr error
}

func statusKey(handle string, userID int64) string {
	return handle + ":" + strconv.FormatInt(userID, 10)
}

// SetStatus scripts the membership status for a (channel, user) pair.
func (g *Gateway) SetStatus(handle string, userID int64, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Statuses == nil {
		g.Statuses = make(map[string]string)
	}
	g.Statuses[statusKey(handle, userID)] = status
}

// Send records the message and returns a fresh reference.
func (g *Gateway) Send(_ context.Context, msg gateway.Message) (gateway.Sent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SendErr != nil {
		if g.SendErrAfter <= 0 {
			return gateway.Sent{}, g.SendErr
		}
		g.SendErrAfter--
	}
	g.nextMessageID++
	ref := gateway.Sent{ChatID: msg.ChatID, MessageID: g.nextMessageID}
	g.Sends = append(g.Sends, SentRecord{Msg: msg, Ref: ref})
	return ref, nil
}

// Edit records the edit target.
func (g *Gateway) Edit(_ context.Context, ref gateway.Sent, _ string, _ gateway.Keyboard) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Edits = append(g.Edits, ref)
	return nil
}

// Delete records the deletion target.
func (g *Gateway) Delete(_ context.Context, ref gateway.Sent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DeleteErr != nil {
		return g.DeleteErr
	}
	g.Deletes = append(g.Deletes, ref)
	return nil
}

// CopyFromRecord captures one CopyFrom call.
type CopyFromRecord struct {
	FromChat  int64
	MessageID int
	ToChat    int64
	Ref       gateway.Sent
}

// CopyFrom records the raw copy and returns a fresh reference.
func (g *Gateway) CopyFrom(_ context.Context, fromChat int64, messageID int, toChat int64) (gateway.Sent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CopyErr != nil {
		if g.CopyErrAfter <= 0 {
			return gateway.Sent{}, g.CopyErr
		}
		g.CopyErrAfter--
	}
	g.nextMessageID++
	ref := gateway.Sent{ChatID: toChat, MessageID: g.nextMessageID}
	g.CopiesFrom = append(g.CopiesFrom, CopyFromRecord{FromChat: fromChat, MessageID: messageID, ToChat: toChat, Ref: ref})
	return ref, nil
}

// Copy records the copy and returns a fresh reference.
func (g *Gateway) Copy(_ context.Context, from types.Coordinate, toChat int64, caption string) (gateway.Sent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CopyErr != nil {
		if g.CopyErrAfter <= 0 {
			return gateway.Sent{}, g.CopyErr
		}
		g.CopyErrAfter--
	}
	g.nextMessageID++
	ref := gateway.Sent{ChatID: toChat, MessageID: g.nextMessageID}
	g.Copies = append(g.Copies, CopyRecord{From: from, ToChat: toChat, Caption: caption, Ref: ref})
	return ref, nil
}

// MemberStatus returns the scripted status, defaulting to "left".
func (g *Gateway) MemberStatus(_ context.Context, handle string, userID int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.MemberStatusErr != nil {
		return "", g.MemberStatusErr
	}
	if s, ok := g.Statuses[statusKey(handle, userID)]; ok {
		return s, nil
	}
	return "left", nil
}

// LastSend returns the most recent send, or nil.
func (g *Gateway) LastSend() *SentRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Sends) == 0 {
		return nil
	}
	return &g.Sends[len(g.Sends)-1]
}
