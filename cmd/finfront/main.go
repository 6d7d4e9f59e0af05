package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgellow/finfront/internal/config"
	"github.com/dgellow/finfront/internal/log"
	"github.com/dgellow/finfront/internal/metrics"
	"github.com/dgellow/finfront/internal/server"
)

var BuildVersion = "dev"

const usage = `Usage: finfront [flags] <command> [args]

Commands:
  login <email>                 sign in (password from FINFRONT_PASSWORD or stdin)
  logout                        sign out and forget stored credentials
  whoami                        show the signed-in user
  token                         print a valid access token, refreshing if needed
  tx list|add|rm|classify       manage transactions
  accounts list|transfer        manage wallets and bank accounts
  budgets list                  show spending plans
  targets list                  show savings goals
  admin users|admins|permissions
  chat [-confirm] <text>        describe a transaction in free text
  summary [-range R]            income, expense and spend by category
  mcp                           serve the finance tools over MCP stdio

Flags:
`

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": config.ConfigVersion,
		"api": map[string]any{
			"baseURL": "https://api.finance.example.com",
			"timeout": "30s",
			"endpoints": map[string]any{
				"signIn":      config.DefaultSignInEndpoint,
				"verifyToken": config.DefaultVerifyTokenEndpoint,
				"signOut":     config.DefaultSignOutEndpoint,
			},
		},
		"session": map[string]any{
			"signInPath":          config.DefaultSignInPath,
			"redirectDelay":       "1.5s",
			"refreshBeforeExpiry": "1m",
		},
		"storage": map[string]any{
			"kind":          "file",
			"profile":       config.DefaultProfile,
			"encryptionKey": map[string]string{"$env": "FINFRONT_ENCRYPTION_KEY"},
		},
		"ui": map[string]any{
			"locale": config.DefaultLocale,
			"color":  true,
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(path string) error {
	result, err := config.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("error during validation: %w", err)
	}

	fmt.Printf("Validating: %s\n", path)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, err := range result.Errors {
			if err.Path != "" {
				fmt.Printf("  - %s: %s\n", err.Path, err.Message)
			} else {
				fmt.Printf("  - %s\n", err.Message)
			}
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			if warn.Path != "" {
				fmt.Printf("  - %s: %s\n", warn.Path, warn.Message)
			} else {
				fmt.Printf("  - %s\n", warn.Message)
			}
		}
	}

	fmt.Println()
	switch {
	case len(result.Errors) == 0 && len(result.Warnings) == 0:
		fmt.Println("Result: PASS")
	case len(result.Errors) == 0:
		fmt.Println("Result: PASS (with warnings)")
	default:
		fmt.Println("Result: FAIL")
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
	}
	return nil
}

func main() {
	conf := flag.String("config", "", "path to config file (default $FINFRONT_CONFIG or ~/.config/finfront/config.json)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	jsonOut := flag.Bool("json", false, "print results and errors as JSON")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	path := *conf
	if path == "" {
		path = config.DefaultPath()
	}

	if *validate {
		if err := validateConfig(path); err != nil {
			os.Exit(1)
		}
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: no config at %s\n", path)
		fmt.Fprintf(os.Stderr, "Run finfront -config-init %s to create one\n", path)
		os.Exit(1)
	}
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}
	if err := log.Configure(log.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		log.LogError("Invalid logging config: %v", err)
		os.Exit(1)
	}

	log.LogDebugWithFields("main", "Starting finfront", map[string]any{
		"version": BuildVersion,
		"config":  path,
		"command": args[0],
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	m := metrics.New()
	var metricsSrv *server.HTTPServer
	if *metricsAddr != "" {
		metricsSrv = server.NewHTTPServer(m, *metricsAddr)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				log.LogErrorWithFields("main", "Metrics server failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	a, err := newApp(ctx, cfg, appOptions{
		Route:   routeFor(args[0], cfg),
		JSON:    *jsonOut,
		Metrics: m,
		Version: BuildVersion,
		Out:     os.Stdout,
		ErrOut:  os.Stderr,
		In:      os.Stdin,
	})
	if err != nil {
		log.LogError("Failed to start: %v", err)
		stop()
		os.Exit(1)
	}

	code := a.run(ctx, args)
	a.Close()
	stop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Stop(shutdownCtx)
		cancel()
	}
	if code != 0 {
		os.Exit(code)
	}
}
