// Package unsupported provides explicit stubs for platforms postkit cannot
// publish to yet. They always fail; they are never silent no-ops.
package unsupported

import (
	"context"
	"encoding/json"

	"github.com/blacktop/postkit/internal/publish"
)

// Publisher is a stub for one platform.
type Publisher struct {
	platform publish.Platform
}

// New returns a stub for platform.
func New(platform publish.Platform) *Publisher {
	return &Publisher{platform: platform}
}

// Twitter needs OAuth 2.0 user context and elevated API access.
func Twitter() *Publisher { return New(publish.Twitter) }

// TikTok needs the Content Posting API and an app audit for public posts.
func TikTok() *Publisher { return New(publish.TikTok) }

// YouTube needs a resumable video upload through videos.insert.
func YouTube() *Publisher { return New(publish.YouTube) }

// All returns the stubs for every platform without publishing support.
func All() []publish.Publisher {
	return []publish.Publisher{Twitter(), TikTok(), YouTube()}
}

func (p *Publisher) Platform() publish.Platform { return p.platform }

// NotImplemented returns the fixed failure for this platform.
func (p *Publisher) NotImplemented() *publish.Error {
	return publish.NotImplemented(p.platform)
}

func (p *Publisher) Resolve(context.Context, publish.Credentials) (publish.Target, error) {
	return publish.Target{}, p.NotImplemented()
}

func (p *Publisher) Publish(context.Context, publish.Target, publish.Post) (json.RawMessage, error) {
	return nil, p.NotImplemented()
}

var _ publish.Stub = (*Publisher)(nil)
