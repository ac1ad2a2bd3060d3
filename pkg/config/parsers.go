package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	Config string
	Set    map[string]bool
}

// ParseConfigFlags parses command-line flags and returns them as a Flags
// struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, Config: *cfgPtr, Set: setFlags}
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and CALLBRIDGE_CONFIG when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CALLBRIDGE_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// ApplyEnvOverrides mutates cfg with CALLBRIDGE_* environment values and
// reports whether any were used. Env wins over file, flags win over both
// (handled by the caller).
func ApplyEnvOverrides(cfg *Config) bool {
	envUsed := false

	if v := os.Getenv("CALLBRIDGE_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	} else {
		if host := os.Getenv("CALLBRIDGE_ADDRESS"); host != "" {
			envUsed = true
			cfg.Server.Address = host
		}
		if port := os.Getenv("CALLBRIDGE_PORT"); port != "" {
			envUsed = true
			if pi, err := strconv.Atoi(port); err == nil {
				cfg.Server.Port = pi
			}
		}
	}

	if v := os.Getenv("CALLBRIDGE_OPERATIONS_FILE"); v != "" {
		envUsed = true
		cfg.OperationsFile = v
	}
	if v := os.Getenv("CALLBRIDGE_RECORD_DB_PATH"); v != "" {
		envUsed = true
		cfg.Record.DBPath = v
		cfg.Record.Enabled = true
	}
	if v := os.Getenv("CALLBRIDGE_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("CALLBRIDGE_LOG_FORMAT"); v != "" {
		envUsed = true
		cfg.Logging.Format = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("CALLBRIDGE_POOL_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Engine.PoolCapacity = n
		}
	}
	if v := os.Getenv("CALLBRIDGE_POOL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Engine.PoolWorkers = n
		}
	}

	// Per-service base URL overrides: CALLBRIDGE_SERVICE_<NAME>_URL.
	for i := range cfg.Services {
		key := "CALLBRIDGE_SERVICE_" + strings.ToUpper(strings.ReplaceAll(cfg.Services[i].Name, "-", "_")) + "_URL"
		if v := os.Getenv(key); v != "" {
			envUsed = true
			cfg.Services[i].BaseURL = v
		}
	}

	if c := os.Getenv("CALLBRIDGE_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("CALLBRIDGE_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}

	return envUsed
}

// LoadEffective loads config from path and applies environment overrides.
// A missing file yields an empty config so env-only deployments work.
func LoadEffective(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = &Config{}
		} else {
			return nil, false, err
		}
	}
	envUsed := ApplyEnvOverrides(cfg)
	return cfg, envUsed, nil
}
