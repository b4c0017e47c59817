package meta

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/httpapi"
)

// Facebook posts to the first page the user manages.
type Facebook struct {
	api *httpapi.Client
}

// NewFacebook constructs a Facebook page publisher.
func NewFacebook(cfg Config) *Facebook {
	return &Facebook{api: cfg.client(publish.Facebook)}
}

// Platform returns the provider identifier.
func (f *Facebook) Platform() publish.Platform { return publish.Facebook }

// Resolve finds the page to post to. A page ID already stored with the
// credentials skips the lookup. When the page listing returns a page token
// it is used for the feed post.
func (f *Facebook) Resolve(ctx context.Context, creds publish.Credentials) (publish.Target, error) {
	token, err := tokenOf(publish.Facebook, creds)
	if err != nil {
		return publish.Target{}, err
	}
	if c, ok := creds.(publish.FacebookCredentials); ok && c.PageID != "" {
		return publish.Target{Platform: publish.Facebook, ID: c.PageID, AccessToken: token}, nil
	}

	pg, err := firstPage(ctx, f.api, publish.Facebook, token)
	if err != nil {
		return publish.Target{}, err
	}
	if pg.AccessToken != "" {
		token = pg.AccessToken
	}
	return publish.Target{Platform: publish.Facebook, ID: pg.ID, AccessToken: token}, nil
}

type feedRequest struct {
	Message     string `json:"message"`
	Picture     string `json:"picture,omitempty"`
	AccessToken string `json:"access_token"`
}

// Publish writes the caption and hashtags to the page feed.
func (f *Facebook) Publish(ctx context.Context, target publish.Target, post publish.Post) (json.RawMessage, error) {
	return f.api.Do(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   target.ID + "/feed",
		Body: feedRequest{
			Message:     post.Text(),
			Picture:     post.ImageURL,
			AccessToken: target.AccessToken,
		},
	})
}
