package main

import (
	"context"
	"strings"

	"github.com/joho/godotenv"

	"callbridge/internal/app"
	"callbridge/pkg/config"
	"callbridge/pkg/logger"
	"callbridge/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	flags := config.ParseConfigFlags()

	// Config path: flag wins over CALLBRIDGE_CONFIG.
	cfgPath := config.ResolveConfigPath(flags.Config, flags.Set["config"])

	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		logger.Init("", "")
		shutdown.Abort("failed to load config", err, "")
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	// Flags win over env and file for the listen address.
	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
	}

	srcs := []string{}
	if len(flags.Set) > 0 {
		srcs = append(srcs, "flags")
	}
	if envUsed {
		srcs = append(srcs, "env")
	}
	if _, err := config.Load(cfgPath); err == nil {
		srcs = append(srcs, "config")
	}
	logger.Info("config_loaded", "path", cfgPath, "sources", strings.Join(srcs, ","))

	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	if buildDate != "unknown" {
		verStr = verStr + " @ " + buildDate
	}

	a, err := app.New(cfg, addr, verStr)
	if err != nil {
		shutdown.Abort("failed to build runtime", err, "")
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("runtime failed", err, "")
	}
}
