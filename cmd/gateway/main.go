package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/campushub/gateway/internal/config"
	"github.com/campushub/gateway/internal/container"
	"github.com/campushub/gateway/internal/gateway"
)

// Build-time variables (set by ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func run() error {
	cont := container.New()

	configPath := "config.yaml"
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		configPath = path
	}
	cont.SetConfigLoader(config.NewFileLoader(configPath))

	if err := cont.Initialize(); err != nil {
		return err
	}
	logger := cont.Logger()

	gatewayService := gateway.NewService(cont)
	if err := gatewayService.Start(); err != nil {
		return err
	}

	logger.Info("Gateway started", map[string]any{
		"config_path": configPath,
		"version":     Version,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutdown signal received", map[string]any{})

	return gatewayService.Stop()
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("CampusHub API Gateway\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		return
	}

	if *showHelp {
		fmt.Println("CampusHub API Gateway - unified entry point for the platform's services")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Printf("  %s [options]\n", os.Args[0])
		fmt.Println()
		fmt.Println("Options:")
		fmt.Println("  -help         Show help information")
		fmt.Println("  -version      Show version information")
		fmt.Println()
		fmt.Println("Environment Variables:")
		fmt.Println("  CONFIG_PATH            Path to configuration file (default: config.yaml)")
		fmt.Println("  GATEWAY_LISTEN_PORT    Override the listen port")
		fmt.Println("  GATEWAY_REDIS_URL      Override the rate-limit store URL")
		fmt.Println("  GATEWAY_LOG_LEVEL      Override the log level")
		fmt.Println("  GATEWAY_SERVICE_*_URL  Override a service base URL, e.g. GATEWAY_SERVICE_AUTH_URL")
		return
	}

	log.Printf("CampusHub API Gateway %s (built %s)", Version, BuildTime)

	if err := run(); err != nil {
		log.Fatalf("failed to run gateway: %v", err)
	}
}
