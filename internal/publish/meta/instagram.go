package meta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/httpapi"
)

// Instagram publishes images to the business account linked to the user's
// first Facebook page.
type Instagram struct {
	api *httpapi.Client
}

// NewInstagram constructs an Instagram publisher.
func NewInstagram(cfg Config) *Instagram {
	return &Instagram{api: cfg.client(publish.Instagram)}
}

// Platform returns the provider identifier.
func (i *Instagram) Platform() publish.Platform { return publish.Instagram }

// Resolve finds the Instagram business account behind the first page.
func (i *Instagram) Resolve(ctx context.Context, creds publish.Credentials) (publish.Target, error) {
	token, err := tokenOf(publish.Instagram, creds)
	if err != nil {
		return publish.Target{}, err
	}
	if c, ok := creds.(publish.InstagramCredentials); ok && c.BusinessAccountID != "" {
		return publish.Target{Platform: publish.Instagram, ID: c.BusinessAccountID, AccessToken: token}, nil
	}

	pg, err := firstPage(ctx, i.api, publish.Instagram, token)
	if err != nil {
		return publish.Target{}, err
	}

	var resp struct {
		Account *struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	_, err = i.api.DoJSON(ctx, httpapi.Request{
		Path: pg.ID,
		Query: url.Values{
			"fields":       {"instagram_business_account"},
			"access_token": {token},
		},
	}, &resp)
	if err != nil {
		return publish.Target{}, resolutionError(publish.Instagram, "Failed to get Instagram account ID", err)
	}
	if resp.Account == nil || resp.Account.ID == "" {
		return publish.Target{}, publish.ResolutionFailed(publish.Instagram, http.StatusNotFound, "No Instagram business account linked")
	}

	return publish.Target{Platform: publish.Instagram, ID: resp.Account.ID, AccessToken: token}, nil
}

type mediaRequest struct {
	ImageURL    string `json:"image_url"`
	Caption     string `json:"caption"`
	AccessToken string `json:"access_token"`
}

type mediaPublishRequest struct {
	CreationID  string `json:"creation_id"`
	AccessToken string `json:"access_token"`
}

// Validate rejects posts without an image; Instagram has no text-only posts.
func (i *Instagram) Validate(post publish.Post) error {
	if post.ImageURL == "" {
		return publish.Validation(publish.Instagram, "post requires an image URL")
	}
	return nil
}

// Publish creates a media container and then publishes it.
func (i *Instagram) Publish(ctx context.Context, target publish.Target, post publish.Post) (json.RawMessage, error) {
	if err := i.Validate(post); err != nil {
		return nil, err
	}

	var container struct {
		ID string `json:"id"`
	}
	_, err := i.api.DoJSON(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   target.ID + "/media",
		Body: mediaRequest{
			ImageURL:    post.ImageURL,
			Caption:     post.Caption,
			AccessToken: target.AccessToken,
		},
	}, &container)
	if err != nil {
		return nil, err
	}
	if container.ID == "" {
		return nil, publish.APIError(publish.Instagram, 0, "media container response has no id", true, nil)
	}

	return i.api.Do(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   target.ID + "/media_publish",
		Body: mediaPublishRequest{
			CreationID:  container.ID,
			AccessToken: target.AccessToken,
		},
	})
}

var _ publish.Validator = (*Instagram)(nil)
