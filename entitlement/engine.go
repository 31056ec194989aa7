// Package entitlement implements the per-request decision pipeline for
// every download attempt: membership gate, verification gate, quota gate,
// then delivery with scheduled self-destruction and a re-access affordance.
package entitlement

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/async"
	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/gateway"
	"github.com/filegate/filegate/membership"
	"github.com/filegate/filegate/shortlink"
	"github.com/filegate/filegate/types"
	"github.com/filegate/filegate/verification"
)

var log = logrus.WithField("prefix", "entitlement")

// fileCacheValidity bounds how stale a cached file record may be served.
const fileCacheValidity = time.Minute

// Config carries the process-start identifiers the engine needs to build
// links.
type Config struct {
	// BotUsername is the public user bot username for deep links.
	BotUsername string
	// WebBaseURL is the external base of the verification web flow,
	// without a trailing slash.
	WebBaseURL string
}

// Identity is the requesting user as seen on the incoming update.
type Identity struct {
	UserID    int64
	Username  string
	FirstName string
}

// OutcomeKind discriminates the result of a download attempt.
type OutcomeKind int

const (
	// OutcomeDelivered means the file was sent and deletion enrolled.
	OutcomeDelivered OutcomeKind = iota
	// OutcomeNotFound means no such post exists.
	OutcomeNotFound
	// OutcomeSubscribe means the membership gate stopped the request.
	OutcomeSubscribe
	// OutcomeVerify means the verification gate stopped the request.
	OutcomeVerify
	// OutcomeQuota means the quota gate stopped the request.
	OutcomeQuota
	// OutcomeTryAgain means delivery failed on the gateway side.
	OutcomeTryAgain
)

// Screen is a renderable reply. The caller owns addressing.
type Screen struct {
	Text     string
	Keyboard gateway.Keyboard
}

// Outcome is the decision for one download attempt. Screen is nil when the
// engine already produced all user-visible output (the delivered case).
type Outcome struct {
	Kind     OutcomeKind
	Screen   *Screen
	Missing  []*types.Channel
	ReAccess bool
}

// VerifyOutcome is the decision for one web-flow return.
type VerifyOutcome struct {
	Accepted bool
	Reason   verification.RejectReason
	Screen   *Screen
}

type cachedFile struct {
	file *types.File
	at   time.Time
}

// Engine composes the gates and the delivery machinery.
type Engine struct {
	store    db.Database
	gw       gateway.Gateway
	members  *membership.Checker
	tokens   *verification.Manager
	links    shortlink.Minter
	settings *settings.Resolver
	sched    *Scheduler
	files    *lru.Cache
	cfg      Config
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithNow injects a clock for tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds the entitlement engine. The scheduler is owned by the
// engine and stopped through Close.
func NewEngine(
	store db.Database,
	gw gateway.Gateway,
	members *membership.Checker,
	tokens *verification.Manager,
	links shortlink.Minter,
	resolver *settings.Resolver,
	cfg Config,
	opts ...Option,
) (*Engine, error) {
	files, err := lru.New(params.Get().FileCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "build file cache")
	}
	e := &Engine{
		store:    store,
		gw:       gw,
		members:  members,
		tokens:   tokens,
		links:    links,
		settings: resolver,
		files:    files,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.sched = newScheduler(gw, e.now)
	return e, nil
}

// Close stops the deletion scheduler, waiting for in-flight enrollments'
// goroutines to wind down. Pending timers are dropped by design; the
// re-access message is the compensating affordance.
func (e *Engine) Close() {
	e.sched.stop()
}

// file loads a file record through the short-validity cache.
func (e *Engine) file(ctx context.Context, postNo int64) (*types.File, error) {
	if v, ok := e.files.Get(postNo); ok {
		entry := v.(cachedFile)
		if e.now().Sub(entry.at) < fileCacheValidity {
			return entry.file, nil
		}
		e.files.Remove(postNo)
	}
	f, err := e.store.File(ctx, postNo)
	if err != nil {
		return nil, err
	}
	e.files.Add(postNo, cachedFile{file: f, at: e.now()})
	return f, nil
}

// HandleGet runs the full §4.5 pipeline for one download attempt.
func (e *Engine) HandleGet(ctx context.Context, id Identity, postNo int64) (*Outcome, error) {
	// Step 1: resolve the file.
	f, err := e.file(ctx, postNo)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			gateStopsTotal.WithLabelValues("not_found").Inc()
			return &Outcome{Kind: OutcomeNotFound, Screen: notFoundScreen(postNo)}, nil
		}
		return nil, errors.Wrap(err, "resolve file")
	}

	// Step 2: ensure the entitlement row exists.
	user, err := e.store.EnsureUser(ctx, id.UserID, id.Username, id.FirstName, e.now())
	if err != nil {
		return nil, errors.Wrap(err, "ensure user")
	}

	// Step 3: membership gate.
	channels, err := e.store.Channels(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "load channels")
	}
	types.SortChannels(channels)
	if missing := e.members.Missing(ctx, id.UserID, channels); len(missing) > 0 {
		gateStopsTotal.WithLabelValues("subscribe").Inc()
		return &Outcome{
			Kind:    OutcomeSubscribe,
			Screen:  subscribeScreen(missing, postNo),
			Missing: missing,
		}, nil
	}

	// Step 4: verification gate.
	if !user.IsVerified(e.now()) {
		gateStopsTotal.WithLabelValues("verify").Inc()
		screen, err := e.verifyScreen(ctx, id.UserID, verifyPrompt)
		if err != nil {
			return nil, err
		}
		return &Outcome{Kind: OutcomeVerify, Screen: screen}, nil
	}

	// Step 5: quota gate. A post already seen in this window is re-access
	// and bypasses the quota check.
	reaccess := user.HasSeen(postNo)
	if !reaccess {
		limit := e.settings.FileAccessLimit(ctx)
		if user.FilesConsumed >= limit {
			gateStopsTotal.WithLabelValues("quota").Inc()
			screen, err := e.verifyScreen(ctx, id.UserID, quotaPrompt(limit))
			if err != nil {
				return nil, err
			}
			return &Outcome{Kind: OutcomeQuota, Screen: screen}, nil
		}
	}

	// Steps 6 and 7: deliver and enroll deletion.
	return e.deliver(ctx, id.UserID, f, reaccess)
}

// verifyScreen mints a token, wraps the landing URL in the interstitial,
// and builds the CTA screen. Shared by the verification and quota gates:
// the quota CTA is the verify CTA re-themed.
func (e *Engine) verifyScreen(ctx context.Context, userID int64, prompt string) (*Screen, error) {
	tok, err := e.tokens.Mint(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "mint token")
	}
	dest := e.cfg.WebBaseURL + "/r?t=" + verification.EncodeTokenParam(tok.ID)
	short, err := e.links.Mint(ctx, dest)
	if err != nil {
		return nil, errors.Wrap(err, "mint shortlink")
	}
	return verifyCTAScreen(prompt, short, e.settings.HowToVerifyLink(ctx)), nil
}

// deliver copies the archive to the user and commits the bookkeeping.
// Once the copy has gone out the remaining steps run on a detached context:
// the file reached the user, so the counters and the deletion enrollment
// must settle regardless of the caller's cancellation.
func (e *Engine) deliver(ctx context.Context, userID int64, f *types.File, reaccess bool) (*Outcome, error) {
	caption := deliveredCaption(f, e.settings.FilePassword(ctx))
	ttl := e.settings.AutoDeleteTTL(ctx)

	var fileMsg gateway.Sent
	err := async.Retry(ctx, params.Get().RetrySchedule, func(err error) bool {
		return errors.Is(err, gateway.ErrTransient)
	}, func() error {
		var err error
		fileMsg, err = e.gw.Copy(ctx, f.Archive, userID, caption)
		return err
	})
	if err != nil {
		// Abort with no counter mutation.
		log.WithError(err).WithFields(logrus.Fields{
			"user": userID,
			"post": f.PostNo,
		}).Error("Could not deliver file")
		return &Outcome{Kind: OutcomeTryAgain, Screen: tryAgainScreen()}, nil
	}

	detached, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	warnMsg, warnErr := e.gw.Send(detached, gateway.Message{
		ChatID: userID,
		Text:   selfDestructWarning(ttl),
	})
	if warnErr != nil {
		log.WithError(warnErr).WithField("user", userID).Warn("Could not send self-destruct warning")
	}

	// Commit the counters after the send and before the deletion
	// enrollment. One compensating retry; past that the event is logged
	// and the enrollment still proceeds because the file reached the user.
	newlySeen, _, err := e.store.RecordDelivery(detached, userID, f.PostNo, e.now())
	if err != nil {
		newlySeen, _, err = e.store.RecordDelivery(detached, userID, f.PostNo, e.now())
	}
	if err != nil {
		deliveryInconsistentTotal.Inc()
		log.WithError(err).WithFields(logrus.Fields{
			"user": userID,
			"post": f.PostNo,
		}).Error("DELIVERY_INCONSISTENT: file sent but counters not committed")
	}

	if reaccess || (err == nil && !newlySeen) {
		reaccessTotal.Inc()
	} else {
		deliveriesTotal.Inc()
	}

	e.sched.enroll(ttl, fileMsg, warnMsg, warnErr == nil, gateway.Message{
		ChatID:   userID,
		Text:     reAccessText(f),
		Keyboard: reAccessKeyboard(f.PostNo, e.cfg.BotUsername),
	})

	return &Outcome{Kind: OutcomeDelivered, ReAccess: reaccess}, nil
}

// VerifyCTA serves an explicit verify request made outside a download flow.
// Already-verified users get their remaining quota back instead of a fresh
// token.
func (e *Engine) VerifyCTA(ctx context.Context, id Identity) (*Screen, error) {
	user, err := e.store.EnsureUser(ctx, id.UserID, id.Username, id.FirstName, e.now())
	if err != nil {
		return nil, errors.Wrap(err, "ensure user")
	}
	if user.IsVerified(e.now()) {
		remaining := e.settings.FileAccessLimit(ctx) - user.FilesConsumed
		if remaining < 0 {
			remaining = 0
		}
		return alreadyVerifiedScreen(remaining, user.ExpiresAt, e.now()), nil
	}
	return e.verifyScreen(ctx, id.UserID, verifyPrompt)
}

// RefreshMembership drops the user's cached membership answers so the next
// gate pass sees fresh joins. Used by the retry button under the subscribe
// CTA.
func (e *Engine) RefreshMembership(ctx context.Context, userID int64) error {
	channels, err := e.store.Channels(ctx, true)
	if err != nil {
		return errors.Wrap(err, "load channels")
	}
	e.members.Forget(userID, channels)
	return nil
}

// HandleVerifyReturn runs the bot-side validation after the user comes back
// from the interstitial, applying the §4.5.2 reset on acceptance.
func (e *Engine) HandleVerifyReturn(ctx context.Context, id Identity, tokenID string) (*VerifyOutcome, error) {
	if _, err := e.store.EnsureUser(ctx, id.UserID, id.Username, id.FirstName, e.now()); err != nil {
		return nil, errors.Wrap(err, "ensure user")
	}
	verdict, err := e.tokens.Validate(ctx, tokenID, id.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "validate token")
	}
	if !verdict.Accepted {
		return &VerifyOutcome{
			Reason: verdict.Reason,
			Screen: rejectScreen(verdict.Reason),
		}, nil
	}

	now := e.now()
	period := e.settings.VerificationPeriod(ctx)
	if err := e.store.ApplyVerification(ctx, id.UserID, now, now.Add(period), id.UserID); err != nil {
		return nil, errors.Wrap(err, "apply verification reset")
	}
	log.WithFields(logrus.Fields{
		"user":    id.UserID,
		"expires": now.Add(period).Unix(),
	}).Info("Verification accepted, quota window reset")
	return &VerifyOutcome{
		Accepted: true,
		Screen:   verifiedScreen(e.settings.FileAccessLimit(ctx), period),
	}, nil
}
