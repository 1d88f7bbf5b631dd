package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/finchat/finchat/internal/cli/finchatctl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("FINCHAT_CLI_TIMEOUT")), 2*time.Minute)
	options := finchatctl.Options{
		BaseURL:     envOr("FINCHAT_API_URL", "http://localhost:8080"),
		APIKey:      strings.TrimSpace(os.Getenv("FINCHAT_API_KEY")),
		AccountType: strings.TrimSpace(os.Getenv("FINCHAT_ACCOUNT_TYPE")),
		Timeout:     timeout,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}

	code := finchatctl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid FINCHAT_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
