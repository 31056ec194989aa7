// Package shortlink wraps destination URLs in a third-party interstitial.
// The provider is a black box; its only contribution to security is forcing
// a browser traversal that the server-side dwell floors can verify.
package shortlink

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/async"
	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/config/settings"
)

var log = logrus.WithField("prefix", "shortlink")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errTransient marks retryable provider failures.
var errTransient = errors.New("transient shortlink failure")

// Minter turns a destination URL into a link the user must traverse.
type Minter interface {
	Mint(ctx context.Context, dest string) (string, error)
}

// Client is the HTTP shortlink provider client. Credentials come from the
// settings resolver so the operator can rotate them without a restart.
type Client struct {
	httpClient *http.Client
	settings   *settings.Resolver
}

// NewClient builds a provider client.
func NewClient(resolver *settings.Resolver) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		settings:   resolver,
	}
}

type mintResponse struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
	Message      string `json:"message"`
}

// Mint requests a short URL for dest. When the provider is not configured,
// or keeps failing past the retry schedule, the raw destination is returned
// so the verification flow still works, minus the interstitial.
func (c *Client) Mint(ctx context.Context, dest string) (string, error) {
	base := c.settings.ShortlinkBaseURL(ctx)
	key := c.settings.ShortlinkAPIKey(ctx)
	if base == "" || key == "" {
		log.Debug("Shortlink provider not configured, using raw destination")
		return dest, nil
	}

	var short string
	err := async.Retry(ctx, params.Get().RetrySchedule, func(err error) bool {
		return errors.Is(err, errTransient)
	}, func() error {
		var err error
		short, err = c.mintOnce(ctx, base, key, dest)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		log.WithError(err).Warn("Shortlink provider unavailable, falling back to raw destination")
		return dest, nil
	}
	return short, nil
}

func (c *Client) mintOnce(ctx context.Context, base, key, dest string) (string, error) {
	endpoint := base + "/api?api=" + url.QueryEscape(key) + "&url=" + url.QueryEscape(dest)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "build shortlink request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(errTransient, "shortlink request: %v", err)
	}
	defer func() {
		io.Copy(ioutil.Discard, resp.Body) // #nosec G104 -- drain for connection reuse
		resp.Body.Close()                  // #nosec G104
	}()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(errTransient, "shortlink status %d", resp.StatusCode)
	}
	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", errors.Wrapf(errTransient, "read shortlink response: %v", err)
	}
	var parsed mintResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "decode shortlink response")
	}
	if parsed.Status != "success" || parsed.ShortenedURL == "" {
		return "", errors.Wrapf(errTransient, "shortlink provider rejected request: %s", parsed.Message)
	}
	return parsed.ShortenedURL, nil
}
