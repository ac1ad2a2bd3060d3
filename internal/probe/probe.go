package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"callbridge/pkg/binding"
	"callbridge/pkg/config"
	"callbridge/pkg/invoker"
	"callbridge/pkg/logger"
)

// Start launches one scheduler goroutine per configured probe. Each probe
// invokes its operation on the cron schedule and logs the outcome; probes
// are synthetic monitoring, their results are observed through the same
// telemetry and record paths as real traffic.
func Start(ctx context.Context, iv *invoker.Invoker, probes []config.ProbeConfig) (context.CancelFunc, error) {
	if len(probes) == 0 {
		return func() {}, nil
	}
	for _, p := range probes {
		if p.Operation == "" {
			return nil, fmt.Errorf("probe with empty operation")
		}
		cronExpr := p.Cron
		if cronExpr == "" {
			cronExpr = "*/5 * * * *"
		}
		if !gronx.IsValid(cronExpr) {
			return nil, fmt.Errorf("invalid probe cron expression: %s", p.Cron)
		}
	}

	ctx2, cancel := context.WithCancel(ctx)
	for _, p := range probes {
		cronExpr := p.Cron
		if cronExpr == "" {
			cronExpr = "*/5 * * * *"
		}
		go runScheduler(ctx2, iv, p, cronExpr)
	}
	logger.Info("probes_started", "count", len(probes))
	return cancel, nil
}

// runScheduler computes the next tick for the cron expression and sleeps
// until then, firing the probe invocation at each tick.
func runScheduler(ctx context.Context, iv *invoker.Invoker, p config.ProbeConfig, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("probe_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			return
		}

		runOnce(ctx, iv, p)
	}
}

func runOnce(ctx context.Context, iv *invoker.Invoker, p config.ProbeConfig) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	args := binding.Args{}
	for k, v := range p.Args {
		args[k] = v
	}
	out, err := iv.Invoke(cctx, p.Operation, args, nil)
	if err != nil {
		logger.Warn("probe_failed", "operation", p.Operation, "error", err)
		return
	}
	logger.Info("probe_ok", "operation", p.Operation, "status", out.StatusCode)
}
