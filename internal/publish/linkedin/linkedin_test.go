package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blacktop/postkit/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestOrganizationID(t *testing.T) {
	tests := map[string]string{
		"urn:li:organization:12345": "12345",
		"urn:li:organization:7":     "7",
		"98765":                     "98765",
		"urn:li:organization:":      "",
	}
	for urn, want := range tests {
		assert.Equal(t, want, OrganizationID(urn), urn)
	}
}

func TestResolve_FirstAdminOrganization(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizationalEntityAcls", r.URL.Path)
		assert.Equal(t, "roleAssignee", r.URL.Query().Get("q"))
		assert.Equal(t, "ADMIN", r.URL.Query().Get("role"))
		assert.Equal(t, "Bearer member-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		io.WriteString(w, `{"elements":[{"organizationalTarget":"urn:li:organization:2414183","role":"ADMIN"},{"organizationalTarget":"urn:li:organization:1"}]}`)
	})

	target, err := c.Resolve(context.Background(), publish.LinkedInCredentials{AccessToken: "member-token"})
	require.NoError(t, err)
	assert.Equal(t, publish.Target{Platform: publish.LinkedIn, ID: "2414183", AccessToken: "member-token"}, target)
}

func TestResolve_NoOrganizations(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"elements":[]}`)
	})

	_, err := c.Resolve(context.Background(), publish.LinkedInCredentials{AccessToken: "tok"})
	var perr *publish.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, publish.KindResolution, perr.Kind)
	assert.Equal(t, http.StatusNotFound, perr.StatusCode)
	assert.Equal(t, "No LinkedIn organizations found", perr.Message)
	assert.False(t, perr.Retryable)
}

func TestResolve_UpstreamFailure(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"serviceErrorCode":65600,"message":"Invalid access token","status":401}`)
	})

	_, err := c.Resolve(context.Background(), publish.LinkedInCredentials{AccessToken: "expired"})
	var perr *publish.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.Equal(t, "Failed to get LinkedIn organization ID: Invalid access token", perr.Message)
	assert.False(t, publish.IsRetryable(err))
}

func TestResolve_KnownOrganization(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	})

	target, err := c.Resolve(context.Background(), publish.LinkedInCredentials{AccessToken: "tok", OrganizationID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "42", target.ID)
}

func TestPublish(t *testing.T) {
	tests := []struct {
		name string
		post publish.Post
		want string
	}{
		{
			name: "text only",
			post: publish.Post{Caption: "Hello", Hashtags: []string{"#x"}},
			want: `{
				"author": "urn:li:organization:42",
				"lifecycleState": "PUBLISHED",
				"specificContent": {"com.linkedin.ugc.ShareContent": {
					"shareCommentary": {"text": "Hello"},
					"shareMediaCategory": "NONE",
					"media": []
				}},
				"visibility": {"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"}
			}`,
		},
		{
			name: "with image",
			post: publish.Post{Caption: "Look", ImageURL: "https://cdn.example.com/a.png"},
			want: `{
				"author": "urn:li:organization:42",
				"lifecycleState": "PUBLISHED",
				"specificContent": {"com.linkedin.ugc.ShareContent": {
					"shareCommentary": {"text": "Look"},
					"shareMediaCategory": "IMAGE",
					"media": [{"status": "READY", "originalUrl": "https://cdn.example.com/a.png"}]
				}},
				"visibility": {"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"}
			}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/ugcPosts", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.JSONEq(t, tt.want, string(body))
				w.WriteHeader(http.StatusCreated)
				io.WriteString(w, `{"id":"urn:li:share:6844785523593134080"}`)
			})

			raw, err := c.Publish(context.Background(), publish.Target{ID: "42", AccessToken: "tok"}, tt.post)
			require.NoError(t, err)

			var out map[string]string
			require.NoError(t, json.Unmarshal(raw, &out))
			assert.Equal(t, "urn:li:share:6844785523593134080", out["id"])
		})
	}
}

func TestAdminACLsPassthrough(t *testing.T) {
	const payload = `{"paging":{"count":10,"start":0},"elements":[{"organizationalTarget":"urn:li:organization:5"}]}`
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, payload)
	})

	raw, err := c.AdminACLs(context.Background(), "tok")
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}
