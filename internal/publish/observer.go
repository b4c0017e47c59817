package publish

import (
	"fmt"
	"io"
)

// Status is a per-platform lifecycle state reported during a run.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Observer receives progress notifications synchronously, in call order.
type Observer interface {
	Notify(platform Platform, status Status)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(platform Platform, status Status)

func (f ObserverFunc) Notify(platform Platform, status Status) { f(platform, status) }

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) Notify(Platform, Status) {}

// WriterObserver prints human-readable progress lines.
type WriterObserver struct {
	Out io.Writer
}

func (w WriterObserver) Notify(platform Platform, status Status) {
	switch status {
	case StatusPending:
		fmt.Fprintf(w.Out, "posting to %s...\n", platform.Title())
	case StatusSuccess:
		fmt.Fprintf(w.Out, "posted to %s\n", platform.Title())
	case StatusError:
		fmt.Fprintf(w.Out, "failed to post to %s\n", platform.Title())
	}
}
