package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Platform names a social network a post can be published to.
type Platform string

const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	LinkedIn  Platform = "linkedin"
	Twitter   Platform = "twitter"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	Mastodon  Platform = "mastodon"
	Bluesky   Platform = "bluesky"
)

// Platforms lists every platform postkit knows about, in display order.
var Platforms = []Platform{Facebook, Instagram, LinkedIn, Twitter, TikTok, YouTube, Mastodon, Bluesky}

var titles = map[Platform]string{
	Facebook:  "Facebook",
	Instagram: "Instagram",
	LinkedIn:  "LinkedIn",
	Twitter:   "Twitter",
	TikTok:    "TikTok",
	YouTube:   "YouTube",
	Mastodon:  "Mastodon",
	Bluesky:   "Bluesky",
}

// Title returns the display name of the platform.
func (p Platform) Title() string {
	if t, ok := titles[p]; ok {
		return t
	}
	return string(p)
}

// Known reports whether p is one of Platforms.
func (p Platform) Known() bool {
	_, ok := titles[p]
	return ok
}

// ParsePlatform normalizes a user-supplied platform name.
func ParsePlatform(raw string) (Platform, error) {
	p := Platform(strings.TrimSpace(strings.ToLower(raw)))
	switch p {
	case "x":
		return Twitter, nil
	case "":
		return "", fmt.Errorf("empty platform")
	}
	if !p.Known() {
		return p, fmt.Errorf("unsupported platform %q", raw)
	}
	return p, nil
}

// Post is a generated, platform-specific draft. Posts are treated as values
// and never modified once handed to the orchestrator.
type Post struct {
	Platform Platform `json:"platform" yaml:"platform"`
	Caption  string   `json:"caption" yaml:"caption"`
	Hashtags []string `json:"hashtags,omitempty" yaml:"hashtags"`
	ImageURL string   `json:"imageUrl,omitempty" yaml:"image_url"`
}

// Text joins the caption and hashtags the way feed-style networks expect.
func (p Post) Text() string {
	if len(p.Hashtags) == 0 {
		return p.Caption
	}
	return p.Caption + "\n" + strings.Join(p.Hashtags, " ")
}

// Target is the resolved publish destination for one platform: the
// secondary ID that the access token alone does not reveal.
type Target struct {
	Platform    Platform
	ID          string
	AccessToken string
	Host        string
}

// Publisher abstracts a social network that can publish content.
//
// Resolve runs once per post and is never retried. Publish runs inside the
// retry wrapper and must be safe to call again after a retryable failure.
type Publisher interface {
	Platform() Platform
	Resolve(ctx context.Context, creds Credentials) (Target, error)
	Publish(ctx context.Context, target Target, post Post) (json.RawMessage, error)
}

// Stub is implemented by publishers that have no publishing support. The
// orchestrator fails them before touching credentials.
type Stub interface {
	Publisher
	NotImplemented() *Error
}

// Validator is implemented by publishers that can reject a post from its
// content alone. Validate runs before credentials are looked up, so a
// rejected post never reaches the network.
type Validator interface {
	Validate(post Post) error
}

// CredentialStore looks up per-user, per-platform OAuth credentials.
// A missing entry is reported as ok == false with a nil error.
type CredentialStore interface {
	Lookup(ctx context.Context, userID string, platform Platform) (creds Credentials, ok bool, err error)
}
