/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blacktop/postkit/internal/config"
	"github.com/blacktop/postkit/internal/credstore"
	"github.com/blacktop/postkit/internal/oauth"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/blacktop/postkit/internal/publish/bluesky"
	"github.com/blacktop/postkit/internal/publish/httpapi"
	"github.com/blacktop/postkit/internal/publish/linkedin"
	"github.com/blacktop/postkit/internal/publish/mastodon"
	"github.com/blacktop/postkit/internal/publish/meta"
	"github.com/blacktop/postkit/internal/publish/unsupported"
)

// openStore returns the configured credential store. writer is nil when the
// store cannot persist tokens.
func openStore(ctx context.Context, cfg *config.Config) (store publish.CredentialStore, writer credstore.Writer, closeFn func() error, err error) {
	noop := func() error { return nil }
	switch cfg.Store.Driver {
	case "memory":
		m := credstore.NewMemory()
		return m, m, noop, nil
	case "sqlite":
		s, err := credstore.OpenSQLite(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, s.Close, nil
	case "env":
		return credstore.NewEnv(), nil, noop, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newHTTPClient(cfg *config.Config) *http.Client {
	c := httpapi.NewHTTPClient()
	if cfg.Publish.HTTPTimeout > 0 {
		c.Timeout = cfg.Publish.HTTPTimeout
	}
	return c
}

func buildPublishers(cfg *config.Config, httpClient *http.Client) []publish.Publisher {
	graph := meta.Config{BaseURL: cfg.APIs.GraphBaseURL, HTTPClient: httpClient}
	pubs := []publish.Publisher{
		meta.NewFacebook(graph),
		meta.NewInstagram(graph),
		linkedin.New(linkedin.Config{BaseURL: cfg.APIs.LinkedInBaseURL, HTTPClient: httpClient}),
		mastodon.New(mastodon.Config{HTTPClient: httpClient}),
		bluesky.New(bluesky.Config{PDSURL: cfg.APIs.BlueskyPDSURL, HTTPClient: httpClient}),
	}
	return append(pubs, unsupported.All()...)
}

func retryPolicy(cfg *config.Config) publish.RetryPolicy {
	policy := publish.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Publish.MaxAttempts
	return policy
}

func newOrchestrator(cfg *config.Config, store publish.CredentialStore, opts ...publish.Option) *publish.Orchestrator {
	opts = append([]publish.Option{publish.WithRetryPolicy(retryPolicy(cfg))}, opts...)
	return publish.NewOrchestrator(store, buildPublishers(cfg, newHTTPClient(cfg)), opts...)
}

func buildOrchestrator(ctx context.Context, cfg *config.Config, opts ...publish.Option) (*publish.Orchestrator, func() error, error) {
	store, _, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return newOrchestrator(cfg, store, opts...), closeFn, nil
}

func buildExchanger(cfg *config.Config) *oauth.Exchanger {
	providers := make(map[publish.Platform]oauth.ProviderConfig, len(cfg.OAuth))
	for p, o := range cfg.OAuth {
		providers[p] = oauth.ProviderConfig{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			RedirectURL:  o.RedirectURI,
			Scopes:       o.Scopes,
		}
	}
	return oauth.New(newHTTPClient(cfg), providers)
}
