package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"callbridge/internal/probe"
	"callbridge/pkg/banner"
	"callbridge/pkg/codec"
	"callbridge/pkg/config"
	"callbridge/pkg/decode"
	"callbridge/pkg/descriptor"
	"callbridge/pkg/dispatch"
	"callbridge/pkg/invoker"
	"callbridge/pkg/logger"
	"callbridge/pkg/record"
	"callbridge/pkg/retry"
	"callbridge/pkg/shutdown"
	"callbridge/pkg/transport"
)

// App wires the engine and its gateway together: explicit construction,
// no ambient container.
type App struct {
	cfg     *config.Config
	addr    string
	version string

	reg   *descriptor.Registry
	inv   *invoker.Invoker
	pool  *dispatch.Pool
	rec   *record.Store
	srv   *http.Server
	ready bool
}

// New builds the full runtime from an effective config.
func New(cfg *config.Config, addr, version string) (*App, error) {
	a := &App{cfg: cfg, addr: addr, version: version}

	a.reg = descriptor.NewRegistry()
	if err := a.reg.LoadSpecs(cfg.Operations); err != nil {
		return nil, fmt.Errorf("load operations: %w", err)
	}
	if cfg.OperationsFile != "" {
		if err := a.reg.LoadFile(cfg.OperationsFile); err != nil {
			return nil, err
		}
	}

	a.pool = dispatch.NewPool(cfg.Engine.PoolCapacity, cfg.Engine.PoolWorkers)

	services, policy, err := buildServices(cfg, a.pool)
	if err != nil {
		return nil, err
	}

	opts := []invoker.Option{invoker.WithPool(a.pool), invoker.WithRetryPolicy(policy)}
	if cfg.Record.Enabled {
		rec, err := record.Open(cfg.Record.DBPath)
		if err != nil {
			return nil, err
		}
		a.rec = rec
		opts = append(opts, invoker.WithObserver(rec.Observer()))
	}

	a.inv = invoker.New(a.reg, services, opts...)
	return a, nil
}

// buildServices turns service config blocks into invoker runtimes. The
// retry policy is global: the first service block declaring retry wins,
// defaulting to no retry.
func buildServices(cfg *config.Config, pool *dispatch.Pool) (map[string]*invoker.Service, retry.Policy, error) {
	var policy retry.Policy = retry.None{}
	services := map[string]*invoker.Service{}
	jsonCodec := codec.JSON{}

	for _, sc := range cfg.Services {
		tcfg := transport.Config{
			BaseURL:        sc.BaseURL,
			ConnectTimeout: config.Duration(sc.ConnectTimeout, 5*time.Second),
			ReadTimeout:    config.Duration(sc.ReadTimeout, 30*time.Second),
			DefaultHeaders: sc.DefaultHeaders,
		}
		if err := transport.ValidateConfig(tcfg); err != nil {
			return nil, nil, fmt.Errorf("service %s: %w", sc.Name, err)
		}

		var adapter transport.Adapter
		switch sc.Engine {
		case "", "nethttp":
			adapter = transport.NewNetHTTPAdapter(tcfg)
		case "fasthttp":
			adapter = transport.NewFastHTTPAdapter(tcfg)
		default:
			return nil, nil, fmt.Errorf("service %s: unknown engine %q", sc.Name, sc.Engine)
		}

		svc := &invoker.Service{
			Transport: transport.New(tcfg, adapter, jsonCodec, pool),
			Chain:     decode.NewChain(jsonCodec),
		}
		if sc.RateLimit.RPS > 0 {
			burst := sc.RateLimit.Burst
			if burst <= 0 {
				burst = 1
			}
			svc.Limiter = rate.NewLimiter(rate.Limit(sc.RateLimit.RPS), burst)
		}
		if sc.Retry.MaxAttempts > 1 {
			policy = retry.Backoff{
				MaxAttempts: sc.Retry.MaxAttempts,
				BaseDelay:   config.Duration(sc.Retry.BaseDelay, 100*time.Millisecond),
				MaxDelay:    config.Duration(sc.Retry.MaxDelay, 2*time.Second),
			}
		}
		services[sc.Name] = svc
	}
	return services, policy, nil
}

// Run starts the gateway and probes and blocks until ctx is cancelled or
// the server fails.
func (a *App) Run(ctx context.Context) error {
	banner.Print(a.cfg, a.addr, a.version)

	stopProbes, err := probe.Start(ctx, a.inv, a.cfg.Probes)
	if err != nil {
		return err
	}
	defer stopProbes()

	errCh := a.startHTTP()
	a.ready = true
	logger.Info("gateway_started", "addr", a.addr, "operations", len(a.reg.Keys()))

	select {
	case <-ctx.Done():
		logger.Info("shutting_down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			shutdown.Abort("http server failed", err, "")
		}
	}

	shctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.srv != nil {
		_ = a.srv.Shutdown(shctx)
	}
	a.pool.Close()
	if a.rec != nil {
		_ = a.rec.Close()
	}
	logger.Info("shutdown_complete")
	return nil
}

// startHTTP builds the handler, starts the HTTP server in a goroutine and
// returns a channel that will contain any server error.
func (a *App) startHTTP() <-chan error {
	a.srv = &http.Server{Addr: a.addr, Handler: a.routes()}
	errCh := make(chan error, 1)
	go func() {
		cert := a.cfg.Server.TLS.CertFile
		key := a.cfg.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- a.srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- a.srv.ListenAndServe()
		}
	}()
	return errCh
}
