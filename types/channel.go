package types

import (
	"sort"
	"time"
)

// Channel is a force-subscription channel entry keyed by its public handle.
type Channel struct {
	Handle     string    `json:"handle"`
	Link       string    `json:"link"`
	ButtonText string    `json:"button_text"`
	Order      int       `json:"order"`
	Active     bool      `json:"active"`
	AddedBy    int64     `json:"added_by"`
	AddedAt    time.Time `json:"added_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SortChannels orders entries by display order, breaking ties by insertion
// time and then handle so listings are stable across reads.
func SortChannels(chs []*Channel) {
	sort.SliceStable(chs, func(i, j int) bool {
		if chs[i].Order != chs[j].Order {
			return chs[i].Order < chs[j].Order
		}
		if !chs[i].AddedAt.Equal(chs[j].AddedAt) {
			return chs[i].AddedAt.Before(chs[j].AddedAt)
		}
		return chs[i].Handle < chs[j].Handle
	})
}
