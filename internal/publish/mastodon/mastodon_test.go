package mastodon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blacktop/postkit/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_MissingFields(t *testing.T) {
	_, err := New(Config{}).Resolve(context.Background(), publish.MastodonCredentials{})

	var perr *publish.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, publish.KindMissingCredentials, perr.Kind)
	assert.Equal(t, "mastodon credentials not configured (missing server, access token)", perr.Message)
}

func TestResolve_WrongCredentials(t *testing.T) {
	_, err := New(Config{}).Resolve(context.Background(), publish.LinkedInCredentials{AccessToken: "x"})

	var perr *publish.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, publish.KindValidation, perr.Kind)
}

func TestResolveAndPublish(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/accounts/verify_credentials", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer md-token", r.Header.Get("Authorization"))
		io.WriteString(w, `{"id":"1090","username":"acme","acct":"acme"}`)
	})
	mux.HandleFunc("POST /api/v1/statuses", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "Launch day\n#go", r.PostForm.Get("status"))
		assert.Equal(t, "unlisted", r.PostForm.Get("visibility"))
		io.WriteString(w, `{"id":"5511","content":"<p>Launch day</p>","visibility":"unlisted"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{Visibility: "unlisted"})
	target, err := c.Resolve(context.Background(), publish.MastodonCredentials{Server: srv.URL + "/", AccessToken: "md-token"})
	require.NoError(t, err)
	assert.Equal(t, "1090", target.ID)
	assert.Equal(t, srv.URL, target.Host)

	raw, err := c.Publish(context.Background(), target, publish.Post{Caption: "Launch day", Hashtags: []string{"#go"}})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":"5511"`)
}

func TestResolve_RejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"The access token is invalid"}`)
	}))
	defer srv.Close()

	_, err := New(Config{}).Resolve(context.Background(), publish.MastodonCredentials{Server: srv.URL, AccessToken: "revoked"})

	var perr *publish.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, publish.KindResolution, perr.Kind)
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.False(t, publish.IsRetryable(err))
}

func TestPublish_StatusCodeDecidesRetry(t *testing.T) {
	for status, retryable := range map[int]bool{
		http.StatusUnprocessableEntity: false,
		http.StatusForbidden:           false,
		http.StatusServiceUnavailable:  true,
		http.StatusTooManyRequests:     true,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			io.WriteString(w, `{"error":"Validation failed: Text can't be blank"}`)
		}))

		_, err := New(Config{}).Publish(context.Background(),
			publish.Target{Platform: publish.Mastodon, Host: srv.URL, AccessToken: "md-token"},
			publish.Post{Caption: "x"})
		srv.Close()

		var perr *publish.Error
		require.True(t, errors.As(err, &perr), "status %d", status)
		assert.Equal(t, publish.KindAPI, perr.Kind)
		assert.Equal(t, status, perr.StatusCode)
		assert.Equal(t, retryable, publish.IsRetryable(err), "status %d", status)
	}
}
