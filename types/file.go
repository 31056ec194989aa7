package types

import (
	"time"
)

// Coordinate addresses a message held by the chat platform as a
// (chat id, message id) pair. Archive items live in the private storage
// channel; public posts live in the public group.
type Coordinate struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// File is a distributed archive record keyed by its post number.
type File struct {
	PostNo           int64      `json:"post_no"`
	Title            string     `json:"title"`
	Extra            string     `json:"extra"`
	Archive          Coordinate `json:"archive"`
	PublicPost       Coordinate `json:"public_post"`
	Password         string     `json:"password"`
	Downloads        int64      `json:"downloads"`
	CreatedBy        int64      `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastDownloadedAt time.Time  `json:"last_downloaded_at"`
}
