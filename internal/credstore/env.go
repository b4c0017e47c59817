package credstore

import (
	"context"
	"os"
	"strings"

	"github.com/blacktop/postkit/internal/publish"
)

const envPrefix = "POSTKIT_"

// secondaryEnv names the optional ID variable per platform.
var secondaryEnv = map[publish.Platform]string{
	publish.Facebook:  "FACEBOOK_PAGE_ID",
	publish.Instagram: "INSTAGRAM_ACCOUNT_ID",
	publish.LinkedIn:  "LINKEDIN_ORGANIZATION_ID",
	publish.Bluesky:   "BLUESKY_HANDLE",
}

// serverEnv names the host variable per platform.
var serverEnv = map[publish.Platform]string{
	publish.Mastodon: "MASTODON_SERVER",
	publish.Bluesky:  "BLUESKY_PDS_URL",
}

// Env reads a single operator's credentials from environment variables such
// as POSTKIT_LINKEDIN_ACCESS_TOKEN. The user ID is ignored.
type Env struct {
	getenv func(string) string
}

// NewEnv reads from the process environment.
func NewEnv() *Env {
	return &Env{getenv: os.Getenv}
}

// NewEnvFrom reads from a custom lookup function.
func NewEnvFrom(getenv func(string) string) *Env {
	return &Env{getenv: getenv}
}

// TokenVar returns the variable holding the platform's token.
func TokenVar(platform publish.Platform) string {
	if platform == publish.Bluesky {
		return envPrefix + "BLUESKY_APP_PASSWORD"
	}
	return envPrefix + strings.ToUpper(string(platform)) + "_ACCESS_TOKEN"
}

func (e *Env) get(name string) string {
	return strings.TrimSpace(e.getenv(name))
}

// Lookup reports absent credentials when the token variable is unset. A
// token without its required companion variables is a configuration error.
func (e *Env) Lookup(_ context.Context, _ string, platform publish.Platform) (publish.Credentials, bool, error) {
	token := e.get(TokenVar(platform))
	if token == "" {
		return nil, false, nil
	}

	var secondary, server string
	if name, ok := secondaryEnv[platform]; ok {
		secondary = e.get(envPrefix + name)
	}
	if name, ok := serverEnv[platform]; ok {
		server = e.get(envPrefix + name)
	}

	var missing []string
	switch platform {
	case publish.Mastodon:
		if server == "" {
			missing = append(missing, envPrefix+serverEnv[platform])
		}
	case publish.Bluesky:
		if secondary == "" {
			missing = append(missing, envPrefix+secondaryEnv[platform])
		}
	}
	if len(missing) > 0 {
		return nil, false, publish.MissingEnvError{Provider: string(platform), Variables: missing}
	}

	return publish.NewCredentials(platform, token, secondary, server), true, nil
}
