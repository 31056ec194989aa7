package entitlement

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/gateway"
)

// Scheduler owns the deferred delete-and-reoffer tasks enrolled after each
// delivery. Enrollments are process-local: a restart drops pending timers
// and the re-access message is the compensating affordance.
type Scheduler struct {
	gw     gateway.Gateway
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time

	// after is swappable in tests to fire timers immediately.
	after func(d time.Duration) <-chan time.Time
}

func newScheduler(gw gateway.Gateway, now func() time.Time) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gw:     gw,
		ctx:    ctx,
		cancel: cancel,
		now:    now,
		after:  time.After,
	}
}

// enroll schedules deletion of the delivered file message and its warning
// companion after delay, followed by the re-offer message. Failures are
// logged and never affect entitlement state.
func (s *Scheduler) enroll(delay time.Duration, fileMsg, warnMsg gateway.Sent, haveWarn bool, reoffer gateway.Message) {
	s.wg.Add(1)
	deletionsEnrolledTotal.Inc()
	go func() {
		defer s.wg.Done()
		select {
		case <-s.ctx.Done():
			return
		case <-s.after(delay):
		}

		// Stop() only interrupts the sleep; once the timer fires the
		// sequence runs to completion on a fresh context.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.gw.Delete(ctx, fileMsg); err != nil {
			deletionFailuresTotal.Inc()
			log.WithError(err).WithFields(logrus.Fields{
				"chat":    fileMsg.ChatID,
				"message": fileMsg.MessageID,
			}).Warn("Could not delete delivered file message")
		}
		if haveWarn {
			if err := s.gw.Delete(ctx, warnMsg); err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"chat":    warnMsg.ChatID,
					"message": warnMsg.MessageID,
				}).Warn("Could not delete warning message")
			}
		}
		if _, err := s.gw.Send(ctx, reoffer); err != nil {
			log.WithError(err).WithField("chat", reoffer.ChatID).Warn("Could not send re-access message")
		}
		deletionsFiredTotal.Inc()
	}()
}

// stop cancels pending sleeps and waits for running sequences to finish.
func (s *Scheduler) stop() {
	s.cancel()
	s.wg.Wait()
}
