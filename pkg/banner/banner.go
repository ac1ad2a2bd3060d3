package banner

import (
	"fmt"

	"callbridge/pkg/config"
)

const banner = `
 ██████╗ █████╗ ██╗     ██╗     ██████╗ ██████╗ ██╗██████╗  ██████╗ ███████╗
██╔════╝██╔══██╗██║     ██║     ██╔══██╗██╔══██╗██║██╔══██╗██╔════╝ ██╔════╝
██║     ███████║██║     ██║     ██████╔╝██████╔╝██║██║  ██║██║  ███╗█████╗
██║     ██╔══██║██║     ██║     ██╔══██╗██╔══██╗██║██║  ██║██║   ██║██╔══╝
╚██████╗██║  ██║███████╗███████╗██████╔╝██║  ██║██║██████╔╝╚██████╔╝███████╗
 ╚═════╝╚═╝  ╚═╝╚══════╝╚══════╝╚═════╝ ╚═╝  ╚═╝╚═╝╚═════╝  ╚═════╝ ╚══════╝
`

// Print writes the startup banner plus the effective runtime summary.
func Print(cfg *config.Config, addr, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Services: %d  Operations: %d  Probes: %d\n",
		len(cfg.Services), len(cfg.Operations), len(cfg.Probes))
	for _, s := range cfg.Services {
		engine := s.Engine
		if engine == "" {
			engine = "nethttp"
		}
		fmt.Printf("- %s -> %s (%s)\n", s.Name, s.BaseURL, engine)
	}
	if cfg.Record.Enabled {
		fmt.Printf("Record journal: %s\n", cfg.Record.DBPath)
	} else {
		fmt.Println("Record journal: disabled")
	}
	if cfg.Server.TLS.CertFile != "" && cfg.Server.TLS.KeyFile != "" {
		fmt.Println("TLS: configured")
	} else {
		fmt.Println("TLS: unconfigured")
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/invoke/{operation} - Invoke a declared operation (JSON args)")
	fmt.Println("GET  /v1/operations         - List declared operations")
	fmt.Println("GET  /v1/records/{operation}?limit=<n> - Recent invocation records")
	fmt.Println("GET  /metrics  GET /healthz  GET /readyz  GET /docs/")

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/invoke/getPostById' -d '{\"id\":1}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/records/getPostById?limit=10'\n", addr)
	fmt.Println("")
}
