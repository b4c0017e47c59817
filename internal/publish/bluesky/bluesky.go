package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/httpapi"
	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
)

const (
	// DefaultPDSURL is used when the credentials do not name a PDS.
	DefaultPDSURL = "https://bsky.social"

	feedPostCollection = "app.bsky.feed.post"
	userAgent          = "postkit/1"
)

// Config allows the caller to supply defaults for credentials that omit them.
type Config struct {
	PDSURL     string
	HTTPClient *http.Client
}

// Client implements publish.Publisher for Bluesky.
type Client struct {
	cfg  Config
	http *http.Client
}

// New constructs a Bluesky publisher.
func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.PDSURL) == "" {
		cfg.PDSURL = DefaultPDSURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httpapi.NewHTTPClient()
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Platform identifies the provider.
func (c *Client) Platform() publish.Platform { return publish.Bluesky }

func (c *Client) xrpcClient(host string) *xrpc.Client {
	ua := userAgent
	return &xrpc.Client{
		Client:    c.http,
		Host:      host,
		UserAgent: &ua,
	}
}

// Resolve logs in with the app password. The session's access JWT and DID
// become the publish target.
func (c *Client) Resolve(ctx context.Context, creds publish.Credentials) (publish.Target, error) {
	bc, ok := creds.(publish.BlueskyCredentials)
	if !ok {
		return publish.Target{}, publish.Validation(publish.Bluesky, fmt.Sprintf("got %s credentials", creds.Platform()))
	}

	var missing []string
	if strings.TrimSpace(bc.Handle) == "" {
		missing = append(missing, "handle")
	}
	if strings.TrimSpace(bc.AppPassword) == "" {
		missing = append(missing, "app password")
	}
	if len(missing) > 0 {
		err := publish.MissingCredentials(publish.Bluesky)
		err.Message = publish.MissingEnvError{Provider: string(publish.Bluesky), Variables: missing}.Error()
		return publish.Target{}, err
	}

	host := strings.TrimSpace(bc.PDSURL)
	if host == "" {
		host = c.cfg.PDSURL
	}

	session, err := atproto.ServerCreateSession(ctx, c.xrpcClient(host), &atproto.ServerCreateSession_Input{
		Identifier: bc.Handle,
		Password:   bc.AppPassword,
	})
	if err != nil {
		status := statusOf(err)
		if status == 0 {
			status = http.StatusUnauthorized
		}
		return publish.Target{}, publish.ResolutionFailed(publish.Bluesky, status, fmt.Sprintf("login: %v", err))
	}

	return publish.Target{
		Platform:    publish.Bluesky,
		ID:          session.Did,
		AccessToken: session.AccessJwt,
		Host:        host,
	}, nil
}

// Publish creates a new Bluesky post with an optional image embed.
func (c *Client) Publish(ctx context.Context, target publish.Target, post publish.Post) (json.RawMessage, error) {
	client := c.xrpcClient(target.Host)
	client.Auth = &xrpc.AuthInfo{
		AccessJwt: target.AccessToken,
		Did:       target.ID,
	}

	record := &bsky.FeedPost{
		LexiconTypeID: feedPostCollection,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Text:          post.Text(),
	}

	if post.ImageURL != "" {
		blob, err := c.uploadImage(ctx, client, post.ImageURL)
		if err != nil {
			return nil, err
		}
		record.Embed = &bsky.FeedPost_Embed{
			EmbedImages: &bsky.EmbedImages{
				Images: []*bsky.EmbedImages_Image{
					{
						Alt:   post.Caption,
						Image: blob,
					},
				},
			},
		}
	}

	out, err := atproto.RepoCreateRecord(ctx, client, &atproto.RepoCreateRecord_Input{
		Collection: feedPostCollection,
		Repo:       target.ID,
		Record: &util.LexiconTypeDecoder{
			Val: record,
		},
	})
	if err != nil {
		return nil, apiError("create record", err)
	}

	return json.Marshal(out)
}

func (c *Client) uploadImage(ctx context.Context, client *xrpc.Client, imageURL string) (*util.LexBlob, error) {
	data, _, err := httpapi.FetchMedia(ctx, c.http, publish.Bluesky, imageURL)
	if err != nil {
		return nil, err
	}

	resp, err := atproto.RepoUploadBlob(ctx, client, bytes.NewReader(data))
	if err != nil {
		return nil, apiError("upload blob", err)
	}
	if resp.Blob == nil {
		return nil, publish.APIError(publish.Bluesky, 0, "upload blob: empty response", true, nil)
	}

	return resp.Blob, nil
}

func statusOf(err error) int {
	var xerr *xrpc.Error
	if errors.As(err, &xerr) {
		return xerr.StatusCode
	}
	return 0
}

func apiError(op string, err error) error {
	status := statusOf(err)
	return publish.APIError(publish.Bluesky, status, fmt.Sprintf("%s: %v", op, err), publish.RetryableStatus(status), err)
}
