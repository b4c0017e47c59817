// Package oauth builds authorization URLs and exchanges authorization codes
// for the platforms postkit publishes to.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/httpapi"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/linkedin"
)

// ProviderConfig holds one platform's OAuth client registration.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint
}

// DefaultEndpoint returns the well-known endpoint for platform.
func DefaultEndpoint(platform publish.Platform) (oauth2.Endpoint, bool) {
	switch platform {
	case publish.LinkedIn:
		return linkedin.Endpoint, true
	case publish.Facebook, publish.Instagram:
		return facebook.Endpoint, true
	}
	return oauth2.Endpoint{}, false
}

// DefaultScopes returns the scopes requested when none are configured.
func DefaultScopes(platform publish.Platform) []string {
	switch platform {
	case publish.LinkedIn:
		return []string{"r_liteprofile", "r_emailaddress", "w_member_social"}
	case publish.Facebook:
		return []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts"}
	case publish.Instagram:
		return []string{"pages_show_list", "instagram_basic", "instagram_content_publish"}
	}
	return nil
}

// Exchanger proxies the OAuth code flow for the configured platforms.
type Exchanger struct {
	configs map[publish.Platform]*oauth2.Config
	http    *http.Client
}

// New builds an Exchanger. Providers without a client ID are skipped, and
// endpoints and scopes fall back to the platform defaults.
func New(httpClient *http.Client, providers map[publish.Platform]ProviderConfig) *Exchanger {
	if httpClient == nil {
		httpClient = httpapi.NewHTTPClient()
	}
	e := &Exchanger{configs: map[publish.Platform]*oauth2.Config{}, http: httpClient}
	for platform, p := range providers {
		if p.ClientID == "" {
			continue
		}
		endpoint := p.Endpoint
		if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
			def, ok := DefaultEndpoint(platform)
			if !ok {
				logutil.Warnf("oauth: no default endpoint for %s, skipping", platform)
				continue
			}
			if endpoint.AuthURL == "" {
				endpoint.AuthURL = def.AuthURL
			}
			if endpoint.TokenURL == "" {
				endpoint.TokenURL = def.TokenURL
			}
		}
		scopes := p.Scopes
		if len(scopes) == 0 {
			scopes = DefaultScopes(platform)
		}
		e.configs[platform] = &oauth2.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURL:  p.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		}
	}
	return e
}

// Platforms lists the configured platforms.
func (e *Exchanger) Platforms() []publish.Platform {
	var out []publish.Platform
	for _, p := range publish.Platforms {
		if _, ok := e.configs[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (e *Exchanger) config(platform publish.Platform) (*oauth2.Config, error) {
	cfg, ok := e.configs[platform]
	if !ok {
		name := "POSTKIT_OAUTH_" + strings.ToUpper(string(platform)) + "_CLIENT_ID"
		return nil, publish.MissingEnvError{Provider: string(platform), Variables: []string{name}}
	}
	return cfg, nil
}

// NewState returns an unguessable state value for the authorize redirect.
func NewState() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AuthCodeURL returns the URL the browser is redirected to.
func (e *Exchanger) AuthCodeURL(platform publish.Platform, state string) (string, error) {
	cfg, err := e.config(platform)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

// ExchangeError carries the token endpoint's failure response.
type ExchangeError struct {
	Platform   publish.Platform
	StatusCode int
	Body       json.RawMessage
	Err        error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s token exchange: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("%s token exchange: status %d: %s", e.Platform, e.StatusCode, httpapi.ErrorMessage(e.Body))
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// Exchange trades an authorization code for a token with a form-encoded
// POST and returns the token endpoint's raw JSON. An empty redirectURI
// falls back to the configured one.
func (e *Exchanger) Exchange(ctx context.Context, platform publish.Platform, code, redirectURI string) (json.RawMessage, error) {
	cfg, err := e.config(platform)
	if err != nil {
		return nil, err
	}
	if redirectURI == "" {
		redirectURI = cfg.RedirectURL
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ExchangeError{Platform: platform, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, &ExchangeError{Platform: platform, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{Platform: platform, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExchangeError{Platform: platform, StatusCode: resp.StatusCode, Body: asJSON(body)}
	}
	if !json.Valid(body) {
		return nil, &ExchangeError{Platform: platform, StatusCode: resp.StatusCode, Err: fmt.Errorf("token endpoint returned non-JSON body")}
	}
	return json.RawMessage(body), nil
}

// AccessToken pulls access_token out of a token response.
func AccessToken(raw json.RawMessage) (string, error) {
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}
	return tok.AccessToken, nil
}

// asJSON keeps JSON error bodies as-is and quotes anything else.
func asJSON(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(strings.TrimSpace(string(body)))
	return quoted
}
