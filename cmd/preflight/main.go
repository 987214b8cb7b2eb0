// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/siteprobe/internal/config"
)

func main() {
	if !preflight(os.Stdout, os.Stderr) {
		os.Exit(1)
	}
}

// preflight checks the environment the API would start with and reports
// whether it is fit to serve.
func preflight(stdout, stderr io.Writer) bool {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, "✔", msg) }

	cfg := config.FromEnv()
	for _, err := range multierr.Errors(cfg.Validate()) {
		fail(err.Error())
	}

	if len(cfg.AdminAPIKeys) == 0 {
		fail("ADMIN_API_KEYS is empty; anyone who can reach the API can start runs.")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty; only admin keys can read runs.")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for _, name := range []string{"ADMIN_API_KEYS", "PUBLIC_API_KEYS"} {
		if strings.Contains(strings.TrimSpace(os.Getenv(name)), " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	if os.Getenv("API_ADDR") == "" {
		warn("API_ADDR is empty; listening on " + cfg.Addr + ".")
	} else {
		ok("API_ADDR=" + cfg.Addr)
	}

	if _, set := os.LookupEnv("DATABASE_PATH"); !set || cfg.DatabasePath == "" {
		warn("DATABASE_PATH not set; the API keeps runs in memory only.")
	} else {
		ok("DATABASE_PATH=" + cfg.DatabasePath)
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if cfg.SlackWebhookURL == "" {
		warn("SLACK_WEBHOOK_URL empty; run summaries will not be posted.")
	} else {
		ok("SLACK_WEBHOOK_URL present")
	}

	if cfg.InsecureTLS {
		warn("INSECURE_TLS is on; certificate errors will not be reported as SSL_ERROR.")
	}

	if failed {
		return false
	}
	ok("preflight passed")
	return true
}
