package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/httpapi"
	mastodonapi "github.com/mattn/go-mastodon"
)

const requestTimeout = 30 * time.Second

// Config tunes the HTTP side of the publisher.
type Config struct {
	// HTTPClient downloads images referenced by URL.
	HTTPClient *http.Client
	// Visibility of new statuses; empty uses the account default.
	Visibility string
}

// Client implements publish.Publisher for Mastodon.
type Client struct {
	cfg Config
}

// New constructs a Mastodon publisher.
func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// Platform identifies the provider.
func (c *Client) Platform() publish.Platform { return publish.Mastodon }

func (c *Client) api(target publish.Target) *mastodonapi.Client {
	client := mastodonapi.NewClient(&mastodonapi.Config{
		Server:      target.Host,
		AccessToken: target.AccessToken,
	})
	client.Timeout = requestTimeout
	return client
}

// Resolve verifies the token against the server and returns the account.
func (c *Client) Resolve(ctx context.Context, creds publish.Credentials) (publish.Target, error) {
	mc, ok := creds.(publish.MastodonCredentials)
	if !ok {
		return publish.Target{}, publish.Validation(publish.Mastodon, fmt.Sprintf("got %s credentials", creds.Platform()))
	}

	var missing []string
	if strings.TrimSpace(mc.Server) == "" {
		missing = append(missing, "server")
	}
	if strings.TrimSpace(mc.AccessToken) == "" {
		missing = append(missing, "access token")
	}
	if len(missing) > 0 {
		err := publish.MissingCredentials(publish.Mastodon)
		err.Message = publish.MissingEnvError{Provider: string(publish.Mastodon), Variables: missing}.Error()
		return publish.Target{}, err
	}

	target := publish.Target{Platform: publish.Mastodon, Host: strings.TrimRight(mc.Server, "/"), AccessToken: mc.AccessToken}
	account, err := c.api(target).GetAccountCurrentUser(ctx)
	if err != nil {
		return publish.Target{}, publish.ResolutionFailed(publish.Mastodon, http.StatusUnauthorized, fmt.Sprintf("verify credentials: %v", err))
	}
	target.ID = string(account.ID)
	logutil.Debugf("mastodon account resolved: id=%s acct=%s", account.ID, account.Acct)

	return target, nil
}

// Publish posts a new status, attaching the image when the post has one.
func (c *Client) Publish(ctx context.Context, target publish.Target, post publish.Post) (json.RawMessage, error) {
	client := c.api(target)

	var mediaIDs []mastodonapi.ID
	if post.ImageURL != "" {
		attachment, err := c.uploadMedia(ctx, client, post.ImageURL, post.Caption)
		if err != nil {
			return nil, err
		}
		mediaIDs = append(mediaIDs, attachment.ID)
	}

	status, err := client.PostStatus(ctx, &mastodonapi.Toot{
		Status:     post.Text(),
		MediaIDs:   mediaIDs,
		Visibility: c.cfg.Visibility,
	})
	if err != nil {
		return nil, apiError("post status", err)
	}

	return json.Marshal(status)
}

func (c *Client) uploadMedia(ctx context.Context, client *mastodonapi.Client, imageURL, alt string) (*mastodonapi.Attachment, error) {
	data, _, err := httpapi.FetchMedia(ctx, c.cfg.HTTPClient, publish.Mastodon, imageURL)
	if err != nil {
		return nil, err
	}

	attachment, err := client.UploadMediaFromMedia(ctx, &mastodonapi.Media{
		File:        bytes.NewReader(data),
		Description: alt,
	})
	if err != nil {
		return nil, apiError("upload media", err)
	}

	return attachment, nil
}

// apiError carries the server's status code when go-mastodon reports one.
// Transport failures have no status and stay retryable.
func apiError(op string, err error) error {
	var status int
	var merr *mastodonapi.APIError
	if errors.As(err, &merr) {
		status = merr.StatusCode
	}
	return publish.APIError(publish.Mastodon, status, fmt.Sprintf("%s: %v", op, err), publish.RetryableStatus(status), err)
}
