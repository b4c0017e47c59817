// Package meta publishes to Facebook pages and Instagram business accounts
// through the Graph API.
package meta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/httpapi"
)

// DefaultBaseURL is the versioned Graph API root.
const DefaultBaseURL = "https://graph.facebook.com/v19.0"

// Config points the publishers at a Graph API root.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c Config) client(platform publish.Platform) *httpapi.Client {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return httpapi.New(platform, base, c.HTTPClient)
}

type page struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// firstPage lists the pages the token manages and picks the first one.
func firstPage(ctx context.Context, api *httpapi.Client, platform publish.Platform, token string) (page, error) {
	var resp struct {
		Data []page `json:"data"`
	}
	_, err := api.DoJSON(ctx, httpapi.Request{
		Path:  "me/accounts",
		Query: url.Values{"access_token": {token}},
	}, &resp)
	if err != nil {
		return page{}, resolutionError(platform, "Failed to get Facebook page ID", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].ID == "" {
		return page{}, publish.ResolutionFailed(platform, http.StatusNotFound, "No Facebook pages found")
	}
	logutil.Debugf("%s using page %s (%s) of %d", platform, resp.Data[0].ID, resp.Data[0].Name, len(resp.Data))
	return resp.Data[0], nil
}

func resolutionError(platform publish.Platform, prefix string, err error) error {
	status := publish.StatusCode(err)
	var perr *publish.Error
	if errors.As(err, &perr) {
		return publish.ResolutionFailed(platform, status, fmt.Sprintf("%s: %s", prefix, perr.Message))
	}
	return publish.ResolutionFailed(platform, status, fmt.Sprintf("%s: %v", prefix, err))
}

func tokenOf(platform publish.Platform, creds publish.Credentials) (string, error) {
	if creds.Platform() != platform {
		return "", publish.Validation(platform, fmt.Sprintf("got %s credentials", creds.Platform()))
	}
	if creds.Token() == "" {
		return "", publish.MissingCredentials(platform)
	}
	return creds.Token(), nil
}
