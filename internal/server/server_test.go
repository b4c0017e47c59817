package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/blacktop/postkit/internal/credstore"
	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/oauth"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/linkedin"
	"github.com/blacktop/postkit/internal/publish/unsupported"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logutil.SetOutput(io.Discard)
	m.Run()
}

type fixture struct {
	server *Server
	store  *credstore.Memory
}

// newFixture wires a server against an upstream that plays both the OAuth
// token endpoint and the LinkedIn API.
func newFixture(t *testing.T, upstream http.HandlerFunc) fixture {
	t.Helper()
	api := httptest.NewServer(upstream)
	t.Cleanup(api.Close)

	store := credstore.NewMemory()
	li := linkedin.New(linkedin.Config{BaseURL: api.URL, HTTPClient: api.Client()})
	exchanger := oauth.New(api.Client(), map[publish.Platform]oauth.ProviderConfig{
		publish.LinkedIn: {
			ClientID:     "cid",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost:5173/callback",
			Endpoint:     oauth2.Endpoint{AuthURL: api.URL + "/authorize", TokenURL: api.URL + "/token"},
		},
	})
	orc := publish.NewOrchestrator(store,
		append([]publish.Publisher{li}, unsupported.All()...),
		publish.WithRetryPolicy(publish.RetryPolicy{MaxAttempts: 1}),
	)

	srv := New(Config{CORSOrigins: []string{"http://localhost:5173"}}, Deps{
		Orchestrator: orc,
		OAuth:        exchanger,
		LinkedIn:     li,
		Store:        store,
	})
	return fixture{server: srv, store: store}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthorize(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/oauth/linkedin", nil))
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", loc.Path)
	assert.Equal(t, "cid", loc.Query().Get("client_id"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "oauth_state", cookies[0].Name)
	assert.Equal(t, loc.Query().Get("state"), cookies[0].Value)
}

func TestAuthorize_UnknownPlatform(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/oauth/myspace", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCallback_MissingParameters(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(jsonRequest(http.MethodPost, "/api/oauth/linkedin/callback", `{"code":"abc"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing required parameters"}`, w.Body.String())
}

func TestCallback_InvalidBody(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(jsonRequest(http.MethodPost, "/api/oauth/linkedin/callback", `{not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())
}

func TestCallback_ReturnsTokenAndSaves(t *testing.T) {
	const token = `{"access_token":"AQV","expires_in":5184000}`
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "abc", r.PostForm.Get("code"))
		assert.Equal(t, "http://localhost:5173/cb", r.PostForm.Get("redirect_uri"))
		io.WriteString(w, token)
	})

	w := f.do(jsonRequest(http.MethodPost, "/api/oauth/linkedin/callback",
		`{"code":"abc","redirect_uri":"http://localhost:5173/cb","user_id":"u1"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, token, w.Body.String())

	creds, ok, err := f.store.Lookup(context.Background(), "u1", publish.LinkedIn)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AQV", creds.Token())
}

func TestCallback_QueryParameters(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access_token":"x"}`)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/oauth/linkedin/callback?code=abc&redirect_uri=http%3A%2F%2Fx", nil)
	w := f.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	_, ok, _ := f.store.Lookup(context.Background(), "", publish.LinkedIn)
	assert.False(t, ok, "nothing saved without a user")
}

func TestCallback_StateMismatch(t *testing.T) {
	var hits atomic.Int32
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"access_token":"x"}`)
	})

	req := jsonRequest(http.MethodPost, "/api/oauth/linkedin/callback",
		`{"code":"abc","redirect_uri":"http://x","state":"forged"}`)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "issued"})
	w := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid state"}`, w.Body.String())
	assert.Zero(t, hits.Load(), "code must not be exchanged")

	// missing state with a cookie present is rejected too
	req = jsonRequest(http.MethodPost, "/api/oauth/linkedin/callback", `{"code":"abc","redirect_uri":"http://x"}`)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "issued"})
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
	assert.Zero(t, hits.Load())
}

func TestCallback_StateFromAuthorize(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access_token":"x"}`)
	})

	auth := f.do(httptest.NewRequest(http.MethodGet, "/api/oauth/linkedin", nil))
	require.Equal(t, http.StatusFound, auth.Code)
	cookies := auth.Result().Cookies()
	require.Len(t, cookies, 1)

	q := url.Values{"code": {"abc"}, "redirect_uri": {"http://x"}, "state": {cookies[0].Value}}
	req := httptest.NewRequest(http.MethodPost, "/api/oauth/linkedin/callback?"+q.Encode(), nil)
	req.AddCookie(cookies[0])
	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "oauth_state", cleared[0].Name)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"invalid_grant","error_description":"authorization code expired"}`)
	})

	w := f.do(jsonRequest(http.MethodPost, "/api/oauth/linkedin/callback", `{"code":"old","redirect_uri":"http://x"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"error":"invalid_grant","error_description":"authorization code expired"}}`, w.Body.String())
}

func TestCallback_UnconfiguredPlatform(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(jsonRequest(http.MethodPost, "/api/oauth/facebook/callback", `{"code":"c","redirect_uri":"http://x"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], "POSTKIT_OAUTH_FACEBOOK_CLIENT_ID")
}

func TestOrganizationACLs(t *testing.T) {
	const acls = `{"elements":[{"organizationalTarget":"urn:li:organization:9","role":"ADMIN"}]}`
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizationalEntityAcls", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, acls)
	})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v2/organizationalEntityAcls?access_token=tok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, acls, w.Body.String())
}

func TestOrganizationACLs_Errors(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"Invalid access token"}`)
	})

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v2/organizationalEntityAcls", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Access token is required"}`, w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/v2/organizationalEntityAcls?access_token=bad", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid access token"}`, w.Body.String())
}

func TestPublish_Simulated(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(jsonRequest(http.MethodPost, "/api/publish", `{
		"user_id": "u1",
		"simulate": true,
		"platforms": ["linkedin", "twitter"],
		"posts": [{"caption": "Hello", "hashtags": ["#go"]}]
	}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp publishResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Simulated)
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Entries, 2)
	for _, p := range []publish.Platform{publish.LinkedIn, publish.Twitter} {
		res := resp.Results[p]
		assert.True(t, res.Success, p)
		assert.Contains(t, string(res.Data), `"simulated":true`)
	}
}

func TestPublish_ReportsPlatformFailures(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(jsonRequest(http.MethodPost, "/api/publish", `{
		"user_id": "nobody",
		"platforms": ["linkedin", "tiktok"],
		"posts": [{"caption": "Hello"}]
	}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp publishResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Simulated)

	li := resp.Results[publish.LinkedIn]
	assert.False(t, li.Success)
	assert.Equal(t, "No OAuth credentials found for linkedin", li.Error)
	assert.Equal(t, publish.KindMissingCredentials, li.Kind)

	tt := resp.Results[publish.TikTok]
	assert.False(t, tt.Success)
	assert.Equal(t, publish.KindNotImplemented, tt.Kind)
}

func TestPublish_BadRequests(t *testing.T) {
	f := newFixture(t, nil)

	tests := map[string]string{
		"missing user":     `{"posts":[{"caption":"x"}]}`,
		"no posts":         `{"user_id":"u1","posts":[]}`,
		"unknown platform": `{"user_id":"u1","platforms":["myspace"],"posts":[{"caption":"x"}]}`,
		"malformed":        `{"user_id":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := f.do(jsonRequest(http.MethodPost, "/api/publish", body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestCORS(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/publish", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := f.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = f.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
