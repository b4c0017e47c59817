package publish

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/blacktop/postkit/internal/logutil"
	"github.com/google/uuid"
)

// Result is the outcome of publishing one post to one platform.
type Result struct {
	Platform   Platform        `json:"platform"`
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	Kind       Kind            `json:"kind,omitempty"`
	StatusCode int             `json:"statusCode,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Report collects the results of one orchestration run, one entry per
// (post, platform) pair, in the order they were attempted.
type Report struct {
	RunID   string   `json:"runId"`
	Results []Result `json:"results"`
}

// ByPlatform keys the results by platform. When a batch holds several posts
// for the same platform the last one wins.
func (r Report) ByPlatform() map[Platform]Result {
	out := make(map[Platform]Result, len(r.Results))
	for _, res := range r.Results {
		out[res.Platform] = res
	}
	return out
}

// Failed returns the unsuccessful entries.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every entry succeeded.
func (r Report) OK() bool { return len(r.Failed()) == 0 }

// Err joins the failures into one error, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, &Error{Kind: res.Kind, Platform: res.Platform, Message: string(res.Platform) + ": " + res.Error, StatusCode: res.StatusCode})
	}
	return errors.Join(errs...)
}

// Request is one batch to publish.
//
// A post with Platform set goes to that platform when Platforms is empty or
// contains it. A post with no Platform fans out to every entry of Platforms.
type Request struct {
	UserID    string
	Posts     []Post
	Platforms []Platform
	Progress  Observer
}

type job struct {
	platform Platform
	post     Post
}

func (r Request) jobs() []job {
	selected := make(map[Platform]bool, len(r.Platforms))
	for _, p := range r.Platforms {
		selected[p] = true
	}

	var out []job
	for _, post := range r.Posts {
		if post.Platform != "" {
			if len(selected) == 0 || selected[post.Platform] {
				out = append(out, job{platform: post.Platform, post: post})
			}
			continue
		}
		for _, p := range r.Platforms {
			post := post
			post.Platform = p
			out = append(out, job{platform: p, post: post})
		}
	}
	return out
}

// Orchestrator publishes batches of posts one platform at a time.
type Orchestrator struct {
	store      CredentialStore
	publishers map[Platform]Publisher
	observer   Observer
	retry      RetryPolicy
	now        func() time.Time
	newRunID   func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the default progress observer.
func WithObserver(o Observer) Option {
	return func(orc *Orchestrator) { orc.observer = o }
}

// WithRetryPolicy overrides the retry wrapper settings.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(orc *Orchestrator) { orc.retry = p }
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(orc *Orchestrator) { orc.now = now }
}

// NewOrchestrator builds an orchestrator over the given publishers. A later
// publisher for the same platform replaces an earlier one.
func NewOrchestrator(store CredentialStore, publishers []Publisher, opts ...Option) *Orchestrator {
	orc := &Orchestrator{
		store:      store,
		publishers: make(map[Platform]Publisher, len(publishers)),
		observer:   NopObserver{},
		retry:      DefaultRetryPolicy(),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	for _, p := range publishers {
		orc.publishers[p.Platform()] = p
	}
	for _, opt := range opts {
		opt(orc)
	}
	return orc
}

// Publishers returns the registered platforms in display order.
func (o *Orchestrator) Publishers() []Platform {
	var out []Platform
	for _, p := range Platforms {
		if _, ok := o.publishers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Run publishes the batch sequentially. It never fails as a whole: every
// selected (post, platform) pair yields exactly one Result.
func (o *Orchestrator) Run(ctx context.Context, req Request) Report {
	observer := req.Progress
	if observer == nil {
		observer = o.observer
	}

	jobs := req.jobs()
	report := Report{RunID: o.newRunID(), Results: make([]Result, 0, len(jobs))}
	log := logutil.With("run", report.RunID)
	log.Debug("starting publish run", "user", req.UserID, "jobs", len(jobs))

	for _, j := range jobs {
		observer.Notify(j.platform, StatusPending)

		data, err := o.publishOne(ctx, req.UserID, j.platform, j.post)
		res := Result{Platform: j.platform, Timestamp: o.now().UTC()}
		if err != nil {
			res.Error = err.Error()
			var perr *Error
			if errors.As(err, &perr) {
				res.Kind = perr.Kind
				res.StatusCode = perr.StatusCode
			}
			log.Error("publish failed", "platform", j.platform, "err", err)
			report.Results = append(report.Results, res)
			observer.Notify(j.platform, StatusError)
			continue
		}

		res.Success = true
		res.Data = data
		log.Info("published", "platform", j.platform)
		report.Results = append(report.Results, res)
		observer.Notify(j.platform, StatusSuccess)
	}

	return report
}

func (o *Orchestrator) publishOne(ctx context.Context, userID string, platform Platform, post Post) (json.RawMessage, error) {
	pub, ok := o.publishers[platform]
	if !ok {
		return nil, UnsupportedPlatform(platform)
	}
	if stub, ok := pub.(Stub); ok {
		return nil, stub.NotImplemented()
	}
	if v, ok := pub.(Validator); ok {
		if err := v.Validate(post); err != nil {
			return nil, err
		}
	}

	creds, found, err := o.store.Lookup(ctx, userID, platform)
	if err != nil {
		return nil, CredentialLookupFailed(platform, err)
	}
	if !found || creds == nil {
		return nil, MissingCredentials(platform)
	}

	target, err := pub.Resolve(ctx, creds)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &Error{Kind: KindResolution, Platform: platform, Message: err.Error(), Err: err}
	}
	logutil.Debugf("%s target resolved: id=%s", platform, target.ID)

	return Retry(ctx, o.retry, platform, func(ctx context.Context) (json.RawMessage, error) {
		return pub.Publish(ctx, target, post)
	})
}
