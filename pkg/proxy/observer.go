package proxy

import (
	"context"
	"net/url"
	"time"
)

// Forward outcomes, used as metric labels and audit values.
const (
	OutcomeSuccess         = "success"
	OutcomeServiceNotFound = "service_not_found"
	OutcomeNoSecrets       = "no_secrets"
	OutcomeSecretNotFound  = "secret_not_found"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeCanceled        = "canceled"
)

// ForwardEvent describes one completed Forward call. It never carries
// secret values: SecretKeys holds key names and Err's message is scrubbed.
type ForwardEvent struct {
	RequestID  string
	Service    string
	Method     string
	Target     *url.URL
	StatusCode int
	Outcome    string
	SecretKeys []string
	Started    time.Time
	Duration   time.Duration
	Err        error
}

// Observer is notified after every Forward call. Implementations must not
// block; the call happens on the request goroutine.
type Observer interface {
	ObserveForward(ctx context.Context, ev ForwardEvent)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev ForwardEvent)

// ObserveForward calls f(ctx, ev).
func (f ObserverFunc) ObserveForward(ctx context.Context, ev ForwardEvent) {
	f(ctx, ev)
}

// Observers fans an event out to each observer in order.
type Observers []Observer

// ObserveForward implements Observer.
func (o Observers) ObserveForward(ctx context.Context, ev ForwardEvent) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveForward(ctx, ev)
		}
	}
}
