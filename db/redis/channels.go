package redis

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/filegate/filegate/types"
)

// SaveChannel inserts a force-subscription channel entry. Fails with
// ErrAlreadyExists when the handle is configured already.
func (s *Store) SaveChannel(ctx context.Context, c *types.Channel) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.SaveChannel")
	defer span.End()

	enc, err := encode(c)
	if err != nil {
		return errors.Wrap(err, "save channel")
	}
	set, err := s.client.SetNX(ctx, channelKey(c.Handle), enc, 0).Result()
	if err != nil {
		return mapError(err, "save channel")
	}
	if !set {
		return errors.Wrap(ErrAlreadyExists, "save channel")
	}
	if err := s.client.SAdd(ctx, channelsIndexKey, c.Handle).Err(); err != nil {
		return mapError(err, "save channel index")
	}
	return nil
}

// Channel loads one entry by handle.
func (s *Store) Channel(ctx context.Context, handle string) (*types.Channel, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.Channel")
	defer span.End()

	data, err := s.client.Get(ctx, channelKey(handle)).Bytes()
	if err != nil {
		return nil, mapError(err, "get channel")
	}
	c := &types.Channel{}
	if err := decode(data, c); err != nil {
		return nil, errors.Wrap(err, "decode channel")
	}
	return c, nil
}

// Channels lists entries in stable (order, insertion-time) order.
func (s *Store) Channels(ctx context.Context, activeOnly bool) ([]*types.Channel, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.Channels")
	defer span.End()

	handles, err := s.client.SMembers(ctx, channelsIndexKey).Result()
	if err != nil {
		return nil, mapError(err, "list channels")
	}
	chs := make([]*types.Channel, 0, len(handles))
	for _, h := range handles {
		c, err := s.Channel(ctx, h)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if activeOnly && !c.Active {
			continue
		}
		chs = append(chs, c)
	}
	types.SortChannels(chs)
	return chs, nil
}

// UpdateChannel rewrites an existing entry.
func (s *Store) UpdateChannel(ctx context.Context, c *types.Channel) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.UpdateChannel")
	defer span.End()

	exists, err := s.client.Exists(ctx, channelKey(c.Handle)).Result()
	if err != nil {
		return mapError(err, "update channel")
	}
	if exists == 0 {
		return errors.Wrap(ErrNotFound, "update channel")
	}
	enc, err := encode(c)
	if err != nil {
		return errors.Wrap(err, "update channel")
	}
	return mapError(s.client.Set(ctx, channelKey(c.Handle), enc, 0).Err(), "update channel")
}

// DeleteChannel removes an entry and its index membership.
func (s *Store) DeleteChannel(ctx context.Context, handle string) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.DeleteChannel")
	defer span.End()

	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, channelKey(handle))
	pipe.SRem(ctx, channelsIndexKey, handle)
	if _, err := pipe.Exec(ctx); err != nil {
		return mapError(err, "delete channel")
	}
	if del.Val() == 0 {
		return errors.Wrap(ErrNotFound, "delete channel")
	}
	return nil
}
