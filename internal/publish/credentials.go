package publish

// Credentials is a closed union with one variant per platform family. The
// unexported method keeps other packages from adding variants.
type Credentials interface {
	Platform() Platform
	Token() string
	sealed()
}

// FacebookCredentials holds a user token and, optionally, a known page.
type FacebookCredentials struct {
	AccessToken string
	PageID      string
}

func (FacebookCredentials) Platform() Platform { return Facebook }
func (c FacebookCredentials) Token() string    { return c.AccessToken }
func (FacebookCredentials) sealed()            {}

// InstagramCredentials holds a Facebook user token and, optionally, the
// linked Instagram business account.
type InstagramCredentials struct {
	AccessToken       string
	BusinessAccountID string
}

func (InstagramCredentials) Platform() Platform { return Instagram }
func (c InstagramCredentials) Token() string    { return c.AccessToken }
func (InstagramCredentials) sealed()            {}

// LinkedInCredentials holds a member token and, optionally, the organization
// to post as.
type LinkedInCredentials struct {
	AccessToken    string
	OrganizationID string
}

func (LinkedInCredentials) Platform() Platform { return LinkedIn }
func (c LinkedInCredentials) Token() string    { return c.AccessToken }
func (LinkedInCredentials) sealed()            {}

// MastodonCredentials contains the settings needed to reach a Mastodon server.
type MastodonCredentials struct {
	Server      string
	AccessToken string
}

func (MastodonCredentials) Platform() Platform { return Mastodon }
func (c MastodonCredentials) Token() string    { return c.AccessToken }
func (MastodonCredentials) sealed()            {}

// BlueskyCredentials identifies an account by handle and app password.
type BlueskyCredentials struct {
	Handle      string
	AppPassword string
	PDSURL      string
}

func (BlueskyCredentials) Platform() Platform { return Bluesky }
func (c BlueskyCredentials) Token() string    { return c.AppPassword }
func (BlueskyCredentials) sealed()            {}

// TokenCredentials is a bare bearer token for platforms that need nothing
// else (Twitter, TikTok, YouTube).
type TokenCredentials struct {
	For         Platform
	AccessToken string
}

func (c TokenCredentials) Platform() Platform { return c.For }
func (c TokenCredentials) Token() string      { return c.AccessToken }
func (TokenCredentials) sealed()              {}

// NewCredentials builds the variant for platform from flat storage fields.
// secondary carries the page, account, organization ID or Bluesky handle;
// server carries the Mastodon server or Bluesky PDS URL.
func NewCredentials(platform Platform, token, secondary, server string) Credentials {
	switch platform {
	case Facebook:
		return FacebookCredentials{AccessToken: token, PageID: secondary}
	case Instagram:
		return InstagramCredentials{AccessToken: token, BusinessAccountID: secondary}
	case LinkedIn:
		return LinkedInCredentials{AccessToken: token, OrganizationID: secondary}
	case Mastodon:
		return MastodonCredentials{Server: server, AccessToken: token}
	case Bluesky:
		return BlueskyCredentials{Handle: secondary, AppPassword: token, PDSURL: server}
	default:
		return TokenCredentials{For: platform, AccessToken: token}
	}
}

// Flatten is the inverse of NewCredentials.
func Flatten(creds Credentials) (token, secondary, server string) {
	switch c := creds.(type) {
	case FacebookCredentials:
		return c.AccessToken, c.PageID, ""
	case InstagramCredentials:
		return c.AccessToken, c.BusinessAccountID, ""
	case LinkedInCredentials:
		return c.AccessToken, c.OrganizationID, ""
	case MastodonCredentials:
		return c.AccessToken, "", c.Server
	case BlueskyCredentials:
		return c.AppPassword, c.Handle, c.PDSURL
	case TokenCredentials:
		return c.AccessToken, "", ""
	}
	return "", "", ""
}
