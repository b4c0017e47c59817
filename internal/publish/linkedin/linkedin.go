// Package linkedin publishes UGC posts on behalf of an organization the
// member administers.
package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/httpapi"
)

const (
	// DefaultBaseURL is the LinkedIn v2 REST root.
	DefaultBaseURL = "https://api.linkedin.com/v2"

	restliHeader  = "X-Restli-Protocol-Version"
	restliVersion = "2.0.0"
)

// Config points the publisher at a LinkedIn API root.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client implements publish.Publisher for LinkedIn.
type Client struct {
	api *httpapi.Client
}

// New constructs a LinkedIn publisher.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{api: httpapi.New(publish.LinkedIn, base, cfg.HTTPClient)}
}

// Platform returns the provider identifier.
func (c *Client) Platform() publish.Platform { return publish.LinkedIn }

// AdminACLs returns the raw organizationalEntityAcls listing of the
// organizations the token holder administers.
func (c *Client) AdminACLs(ctx context.Context, token string) (json.RawMessage, error) {
	return c.api.Do(ctx, httpapi.Request{
		Path:   "organizationalEntityAcls",
		Query:  url.Values{"q": {"roleAssignee"}, "role": {"ADMIN"}},
		Bearer: token,
		Header: map[string]string{restliHeader: restliVersion},
	})
}

// Resolve discovers the first administered organization unless the
// credentials already name one.
func (c *Client) Resolve(ctx context.Context, creds publish.Credentials) (publish.Target, error) {
	if creds.Platform() != publish.LinkedIn {
		return publish.Target{}, publish.Validation(publish.LinkedIn, fmt.Sprintf("got %s credentials", creds.Platform()))
	}
	token := creds.Token()
	if token == "" {
		return publish.Target{}, publish.MissingCredentials(publish.LinkedIn)
	}
	if li, ok := creds.(publish.LinkedInCredentials); ok && li.OrganizationID != "" {
		return publish.Target{Platform: publish.LinkedIn, ID: li.OrganizationID, AccessToken: token}, nil
	}

	raw, err := c.AdminACLs(ctx, token)
	if err != nil {
		return publish.Target{}, publish.ResolutionFailed(publish.LinkedIn, publish.StatusCode(err),
			"Failed to get LinkedIn organization ID: "+err.Error())
	}

	var acls struct {
		Elements []struct {
			OrganizationalTarget string `json:"organizationalTarget"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(raw, &acls); err != nil {
		return publish.Target{}, publish.ResolutionFailed(publish.LinkedIn, http.StatusBadGateway,
			fmt.Sprintf("Failed to get LinkedIn organization ID: decode response: %v", err))
	}
	if len(acls.Elements) == 0 {
		return publish.Target{}, publish.ResolutionFailed(publish.LinkedIn, http.StatusNotFound, "No LinkedIn organizations found")
	}

	id := OrganizationID(acls.Elements[0].OrganizationalTarget)
	if id == "" {
		return publish.Target{}, publish.ResolutionFailed(publish.LinkedIn, http.StatusNotFound, "No LinkedIn organizations found")
	}
	return publish.Target{Platform: publish.LinkedIn, ID: id, AccessToken: token}, nil
}

// OrganizationID extracts the trailing ID from a URN such as
// "urn:li:organization:12345".
func OrganizationID(urn string) string {
	return strings.TrimSpace(urn[strings.LastIndex(urn, ":")+1:])
}

// Publish creates a public UGC post authored by the organization.
func (c *Client) Publish(ctx context.Context, target publish.Target, post publish.Post) (json.RawMessage, error) {
	return c.api.Do(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   "ugcPosts",
		Body:   NewUGCPost(target.ID, post),
		Bearer: target.AccessToken,
		Header: map[string]string{restliHeader: restliVersion},
	})
}
