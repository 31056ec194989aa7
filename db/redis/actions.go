package redis

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/filegate/filegate/types"
)

// RecordAction appends an entry to the operator action log. The log is
// capped; oldest entries fall off.
func (s *Store) RecordAction(ctx context.Context, a *types.Action) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.RecordAction")
	defer span.End()

	enc, err := encode(a)
	if err != nil {
		return errors.Wrap(err, "record action")
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, actionsKey, enc)
	pipe.LTrim(ctx, actionsKey, 0, actionLogCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return mapError(err, "record action")
	}
	return nil
}

// RecentActions returns up to n log entries, newest first.
func (s *Store) RecentActions(ctx context.Context, n int64) ([]*types.Action, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.RecentActions")
	defer span.End()

	if n <= 0 {
		n = 10
	}
	raw, err := s.client.LRange(ctx, actionsKey, 0, n-1).Result()
	if err != nil {
		return nil, mapError(err, "list actions")
	}
	out := make([]*types.Action, 0, len(raw))
	for _, r := range raw {
		a := &types.Action{}
		if err := decode([]byte(r), a); err != nil {
			log.WithError(err).Warn("Skipping undecodable action log entry")
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
