package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Simulator is the demo-mode publisher. It performs no network calls and
// always succeeds, tagging its data with "simulated": true. It is never
// registered alongside real publishers.
type Simulator struct {
	platform Platform
	now      func() time.Time
}

// NewSimulator returns a demo-mode publisher for platform.
func NewSimulator(platform Platform) *Simulator {
	return &Simulator{platform: platform, now: time.Now}
}

func (s *Simulator) Platform() Platform { return s.platform }

func (s *Simulator) Resolve(_ context.Context, creds Credentials) (Target, error) {
	return Target{Platform: s.platform, ID: "simulated", AccessToken: creds.Token()}, nil
}

func (s *Simulator) Publish(_ context.Context, _ Target, post Post) (json.RawMessage, error) {
	return json.Marshal(struct {
		Simulated bool      `json:"simulated"`
		ID        string    `json:"id"`
		Platform  Platform  `json:"platform"`
		Text      string    `json:"text"`
		ImageURL  string    `json:"imageUrl,omitempty"`
		PostedAt  time.Time `json:"postedAt"`
	}{
		Simulated: true,
		ID:        uuid.NewString(),
		Platform:  s.platform,
		Text:      post.Text(),
		ImageURL:  post.ImageURL,
		PostedAt:  s.now().UTC(),
	})
}

type simulatedStore struct{}

func (simulatedStore) Lookup(_ context.Context, userID string, platform Platform) (Credentials, bool, error) {
	return TokenCredentials{For: platform, AccessToken: "simulated-" + userID}, true, nil
}

// NewSimulation builds an orchestrator in demo mode: every known platform,
// stubs included, reports success without contacting any API.
func NewSimulation(opts ...Option) *Orchestrator {
	pubs := make([]Publisher, 0, len(Platforms))
	for _, p := range Platforms {
		pubs = append(pubs, NewSimulator(p))
	}
	opts = append([]Option{WithRetryPolicy(RetryPolicy{MaxAttempts: 1})}, opts...)
	return NewOrchestrator(simulatedStore{}, pubs, opts...)
}
