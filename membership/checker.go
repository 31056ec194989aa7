// Package membership implements the force-subscription gate: given a user
// and the active channel set, it reports which channels the user still has
// to join.
package membership

import (
	"context"
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/types"
)

var log = logrus.WithField("prefix", "membership")

// StatusQuerier is the slice of the chat gateway the checker needs.
type StatusQuerier interface {
	MemberStatus(ctx context.Context, channelHandle string, userID int64) (string, error)
}

// Checker resolves per-channel membership with a short-lived cache. Gateway
// errors degrade to NotMember so the user is asked to re-join rather than
// slipping past the gate.
type Checker struct {
	gw    StatusQuerier
	cache *gocache.Cache
}

// NewChecker builds a checker over the gateway.
func NewChecker(gw StatusQuerier) *Checker {
	ttl := params.Get().MembershipCacheTTL
	return &Checker{
		gw:    gw,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func cacheKey(handle string, userID int64) string {
	return handle + ":" + strconv.FormatInt(userID, 10)
}

// Status returns the gated membership view for one channel.
func (c *Checker) Status(ctx context.Context, channel *types.Channel, userID int64) types.MembershipStatus {
	key := cacheKey(channel.Handle, userID)
	if v, ok := c.cache.Get(key); ok {
		return v.(types.MembershipStatus)
	}
	raw, err := c.gw.MemberStatus(ctx, channel.Handle, userID)
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"channel": channel.Handle,
			"user":    userID,
		}).Warn("Membership query failed, treating as not a member")
		// Unknown results are not cached so a transient gateway blip does
		// not lock the user out for the cache lifetime.
		return types.Unknown
	}
	status := types.MembershipFromChatStatus(raw)
	c.cache.Set(key, status, gocache.DefaultExpiration)
	return status
}

// Missing returns the subset of channels the user is not a member of, in
// the given order. Channel queries run concurrently; the result order is
// the input order regardless of completion order. An Unknown result counts
// as missing.
func (c *Checker) Missing(ctx context.Context, userID int64, channels []*types.Channel) []*types.Channel {
	if len(channels) == 0 {
		return nil
	}
	statuses := make([]types.MembershipStatus, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch *types.Channel) {
			defer wg.Done()
			statuses[i] = c.Status(ctx, ch, userID)
		}(i, ch)
	}
	wg.Wait()

	missing := make([]*types.Channel, 0, len(channels))
	for i, ch := range channels {
		if statuses[i] != types.Member {
			missing = append(missing, ch)
		}
	}
	return missing
}

// Forget drops the cached result for one (channel, user) pair. Used when
// the user taps retry after joining, so the fresh join is visible at once.
func (c *Checker) Forget(userID int64, channels []*types.Channel) {
	for _, ch := range channels {
		c.cache.Delete(cacheKey(ch.Handle, userID))
	}
}
