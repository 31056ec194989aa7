// Package broadcast fans an operator message out to every known user,
// throttled to stay under the chat platform's per-bot send ceiling.
package broadcast

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kevinms/leakybucket-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/gateway"
	"github.com/filegate/filegate/types"
)

var log = logrus.WithField("prefix", "broadcast")

// Sender is the copy operation of the chat gateway used for fan-out.
type Sender interface {
	CopyFrom(ctx context.Context, fromChat int64, messageID int, toChat int64) (gateway.Sent, error)
}

// Summary is the outcome of one broadcast job.
type Summary struct {
	JobID   string
	Total   int
	Sent    int
	Blocked int
	Failed  int
	Elapsed time.Duration
}

// Runner executes broadcast jobs one at a time.
type Runner struct {
	store db.Database
	send  Sender
	now   func() time.Time
	sleep func(d time.Duration)
}

// Option customizes a Runner.
type Option func(*Runner)

// WithNow injects a clock for tests.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithSleep injects the throttle sleep for tests.
func WithSleep(sleep func(d time.Duration)) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// NewRunner builds a broadcast runner.
func NewRunner(store db.Database, send Sender, opts ...Option) *Runner {
	r := &Runner{
		store: store,
		send:  send,
		now:   time.Now,
		sleep: time.Sleep,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run copies the source message to every known user. Blocked recipients are
// marked on their user record and never fail the job; the job itself only
// fails when the recipient list cannot be loaded.
func (r *Runner) Run(ctx context.Context, adminID int64, source types.Coordinate) (*Summary, error) {
	ids, err := r.store.UserIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load recipients")
	}

	cfg := params.Get()
	bucket := leakybucket.NewLeakyBucket(cfg.BroadcastRatePerSecond, cfg.BroadcastBurst)

	started := r.now()
	sum := &Summary{JobID: uuid.New().String(), Total: len(ids)}
	log.WithFields(logrus.Fields{
		"job":        sum.JobID,
		"recipients": sum.Total,
	}).Info("Broadcast started")

	for i, id := range ids {
		if ctx.Err() != nil {
			log.WithField("job", sum.JobID).Warn("Broadcast cancelled")
			break
		}
		r.throttle(bucket)

		_, err := r.send.CopyFrom(ctx, source.ChatID, source.MessageID, id)
		switch {
		case err == nil:
			sum.Sent++
		case errors.Is(err, gateway.ErrBlocked):
			sum.Blocked++
			if merr := r.store.MarkBlocked(ctx, id, true, r.now()); merr != nil {
				log.WithError(merr).WithField("user", id).Warn("Could not mark user blocked")
			}
		default:
			sum.Failed++
			log.WithError(err).WithField("user", id).Debug("Broadcast send failed")
		}

		if (i+1)%100 == 0 {
			log.WithFields(logrus.Fields{
				"job":  sum.JobID,
				"done": i + 1,
			}).Info("Broadcast progress")
		}
	}
	sum.Elapsed = r.now().Sub(started)

	recipientsTotal.Add(float64(sum.Sent))
	blockedTotal.Add(float64(sum.Blocked))
	failedTotal.Add(float64(sum.Failed))

	if err := r.store.RecordAction(ctx, &types.Action{
		ID:      sum.JobID,
		AdminID: adminID,
		Kind:    types.ActionBroadcast,
		Details: map[string]string{
			"total":   strconv.Itoa(sum.Total),
			"sent":    strconv.Itoa(sum.Sent),
			"blocked": strconv.Itoa(sum.Blocked),
			"failed":  strconv.Itoa(sum.Failed),
		},
		At: r.now(),
	}); err != nil {
		log.WithError(err).Warn("Could not record broadcast action")
	}

	log.WithFields(logrus.Fields{
		"job":     sum.JobID,
		"sent":    sum.Sent,
		"blocked": sum.Blocked,
		"failed":  sum.Failed,
	}).Info("Broadcast finished")
	return sum, nil
}

func (r *Runner) throttle(bucket *leakybucket.LeakyBucket) {
	for bucket.Add(1) == 0 {
		r.sleep(bucket.TillEmpty())
	}
}
