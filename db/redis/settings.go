package redis

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/filegate/filegate/types"
)

// Setting loads one setting record.
func (s *Store) Setting(ctx context.Context, key string) (*types.Setting, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.Setting")
	defer span.End()

	data, err := s.client.Get(ctx, settingKey(key)).Bytes()
	if err != nil {
		return nil, mapError(err, "get setting")
	}
	st := &types.Setting{}
	if err := decode(data, st); err != nil {
		return nil, errors.Wrap(err, "decode setting")
	}
	return st, nil
}

// PutSetting upserts a setting value. Settings have no insert/update split;
// the editor always overwrites.
func (s *Store) PutSetting(ctx context.Context, key, value string, by int64, now time.Time) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.PutSetting")
	defer span.End()

	enc, err := encode(&types.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: now,
		UpdatedBy: by,
	})
	if err != nil {
		return errors.Wrap(err, "put setting")
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, settingKey(key), enc, 0)
	pipe.SAdd(ctx, settingsIndexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return mapError(err, "put setting")
	}
	return nil
}

// Settings lists all stored settings sorted by key.
func (s *Store) Settings(ctx context.Context) ([]*types.Setting, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.Settings")
	defer span.End()

	keys, err := s.client.SMembers(ctx, settingsIndexKey).Result()
	if err != nil {
		return nil, mapError(err, "list settings")
	}
	out := make([]*types.Setting, 0, len(keys))
	for _, k := range keys {
		st, err := s.Setting(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
