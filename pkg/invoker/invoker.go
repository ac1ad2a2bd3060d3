package invoker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"callbridge/pkg/binding"
	"callbridge/pkg/decode"
	"callbridge/pkg/descriptor"
	"callbridge/pkg/dispatch"
	"callbridge/pkg/models"
	"callbridge/pkg/retry"
	"callbridge/pkg/telemetry"
	"callbridge/pkg/transport"
)

// Service bundles what one logical remote target needs: a transport, a
// decoding chain and an optional client-side limiter.
type Service struct {
	Transport *transport.Transport
	Chain     *decode.Chain
	Limiter   *rate.Limiter
}

// Observer is notified after every dispatched invocation reaches a
// terminal outcome. Used by the recorder; must not block.
type Observer func(opKey string, out *models.Outcome, d time.Duration)

// Invoker ties the engine together: it resolves bindings, dispatches
// through the service's transport, applies the decoding chain and maps
// the outcome to a result or a DomainError. Built once by explicit
// construction and shared across concurrent invocations.
type Invoker struct {
	reg      *descriptor.Registry
	services map[string]*Service
	policy   retry.Policy
	pool     *dispatch.Pool
	observer Observer
}

// Option configures an Invoker at construction.
type Option func(*Invoker)

// WithRetryPolicy replaces the default no-retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(iv *Invoker) {
		if p != nil {
			iv.policy = p
		}
	}
}

// WithPool sets the worker pool backing Go(). Without one, each
// non-blocking call runs on its own goroutine.
func WithPool(p *dispatch.Pool) Option {
	return func(iv *Invoker) { iv.pool = p }
}

// WithObserver attaches the terminal-outcome observer.
func WithObserver(o Observer) Option {
	return func(iv *Invoker) { iv.observer = o }
}

// New builds an Invoker over a registry and its per-service runtimes.
func New(reg *descriptor.Registry, services map[string]*Service, opts ...Option) *Invoker {
	iv := &Invoker{reg: reg, services: services, policy: retry.None{}}
	for _, o := range opts {
		o(iv)
	}
	return iv
}

// Invoke runs opKey in blocking mode. result, when non-nil, receives the
// decoded success body. A non-nil error is always a *DomainError. The
// outcome is nil only when the invocation was rejected before dispatch.
func (iv *Invoker) Invoke(ctx context.Context, opKey string, args binding.Args, result any) (*models.Outcome, error) {
	out, derr := iv.run(ctx, opKey, args, result)
	if derr != nil {
		return out, derr
	}
	return out, nil
}

// Go runs opKey in non-blocking mode and returns immediately with a Call
// handle. The pipeline is identical to Invoke, so both modes produce
// equivalent outcomes for the same exchange.
func (iv *Invoker) Go(ctx context.Context, opKey string, args binding.Args, result any) *Call {
	c := newCall()
	cctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	job := func() {
		defer cancel()
		out, derr := iv.run(cctx, opKey, args, result)
		if derr != nil {
			c.complete(out, derr)
			return
		}
		c.complete(out, nil)
	}
	if iv.pool != nil {
		if err := iv.pool.Submit(job); err != nil {
			cancel()
			c.complete(nil, &DomainError{Kind: KindTransport, OperationKey: opKey, Reason: models.FailureConnect, Cause: err})
		}
		return c
	}
	go job()
	return c
}

// run executes the full pipeline. Pre-dispatch rejections return a nil
// outcome and a DomainError; everything past dispatch yields an outcome,
// with errors derived from it.
func (iv *Invoker) run(ctx context.Context, opKey string, args binding.Args, result any) (*models.Outcome, *DomainError) {
	desc := iv.reg.Get(opKey)
	if desc == nil {
		telemetry.ObserveBindingError(opKey)
		return nil, &DomainError{Kind: KindInvalidInvocation, OperationKey: opKey,
			Cause: fmt.Errorf("unknown operation %q", opKey)}
	}

	spec, err := binding.Resolve(desc, args)
	if err != nil {
		// Caller misuse: short-circuit, no network call.
		telemetry.ObserveBindingError(opKey)
		return nil, &DomainError{Kind: KindInvalidInvocation, OperationKey: opKey, Cause: err}
	}

	svc := iv.services[desc.Service]
	if svc == nil {
		telemetry.ObserveBindingError(opKey)
		return nil, &DomainError{Kind: KindInvalidInvocation, OperationKey: opKey,
			Cause: fmt.Errorf("operation %s references unconfigured service %q", opKey, desc.Service)}
	}

	target := result
	if target == nil && desc.NewResult != nil {
		target = desc.NewResult()
	}

	start := time.Now()
	out := iv.executeWithRetry(ctx, opKey, svc, spec, target)
	d := time.Since(start)
	telemetry.ObserveInvocation(opKey, out.Kind.String(), d)
	if iv.observer != nil {
		iv.observer(opKey, out, d)
	}
	if out.IsError() {
		return out, errorFromOutcome(opKey, out)
	}
	return out, nil
}

func (iv *Invoker) executeWithRetry(ctx context.Context, opKey string, svc *Service, spec *binding.RequestSpec, target any) *models.Outcome {
	attempt := 0
	for {
		attempt++
		if svc.Limiter != nil {
			if err := svc.Limiter.Wait(ctx); err != nil {
				return models.TransportFailure(models.ReasonOf(err), err)
			}
		}
		out := iv.dispatch(ctx, opKey, svc, spec, target)
		if !retryable(out) {
			return out
		}
		delay, again := iv.policy.Next(attempt, out)
		if !again {
			return out
		}
		telemetry.ObserveRetry(opKey)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return models.TransportFailure(models.ReasonOf(ctx.Err()), ctx.Err())
		}
	}
}

// dispatch sends one attempt and classifies its response.
func (iv *Invoker) dispatch(ctx context.Context, opKey string, svc *Service, spec *binding.RequestSpec, target any) *models.Outcome {
	raw, err := svc.Transport.Do(ctx, spec)
	if err != nil {
		return models.TransportFailure(models.ReasonOf(err), err)
	}
	return svc.Chain.Decode(opKey, raw, target)
}

// retryable: only server errors and transport failures are candidates,
// and decode failures or cancellations never are.
func retryable(out *models.Outcome) bool {
	switch out.Kind {
	case models.KindServerError:
		return true
	case models.KindTransportFailure:
		return out.Reason != models.FailureDecode && out.Reason != models.FailureCancelled
	default:
		return false
	}
}
