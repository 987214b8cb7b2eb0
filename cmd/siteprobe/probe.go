package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/siteprobe/internal/config"
	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/input"
	"github.com/hamed0406/siteprobe/internal/logging"
	"github.com/hamed0406/siteprobe/internal/notify"
	"github.com/hamed0406/siteprobe/internal/report"
	"github.com/hamed0406/siteprobe/internal/repo"
	"github.com/hamed0406/siteprobe/internal/repo/sqlite"
	"github.com/hamed0406/siteprobe/internal/runner"
)

const defaultInput = "domains.txt"

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Classify domains by HTTP reachability",
		Long: `Check issues a GET to every domain in the list (one per line, # comments
allowed; "-" reads stdin), following redirects and falling back from https to http.

Examples:
  siteprobe check domains.txt
  siteprobe check domains.txt -n 20 --timeout 5s --format csv,xlsx,md
  cat domains.txt | siteprobe check - --insecure`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, domain.VariantStatus, args)
		},
	}
	addProbeFlags(cmd)
	cmd.Flags().Int("max-redirects", config.Default().MaxRedirects, "Redirects to follow (0 reports the first 3xx)")
	return cmd
}

func NewCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture [file]",
		Short: "Take full-page screenshots of domains",
		Long: `Capture loads every domain in a headless Chrome and stores a full-page PNG
per domain, then writes an HTML gallery and an XLSX sheet by default.

Examples:
  siteprobe capture domains.txt
  siteprobe capture domains.txt --screenshot-dir shots --settle 2s --format html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, domain.VariantCapture, args)
		},
	}
	addProbeFlags(cmd)
	f := cmd.Flags()
	f.String("screenshot-dir", config.Default().ScreenshotDir, "Directory for screenshots")
	f.Int("width", config.Default().ViewportWidth, "Viewport width")
	f.Int("height", config.Default().ViewportHeight, "Viewport height")
	f.Duration("settle", 0, "Extra wait after the page is ready")
	f.String("chrome-path", "", "Chrome/Chromium executable (default: autodetect)")
	return cmd
}

func addProbeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("concurrency", "n", 0, "Domains probed at once (default 40 for check, 4 for capture)")
	f.DurationP("timeout", "t", 0, "Timeout per attempt (default 10s for check, 15s for capture)")
	f.StringSlice("schemes", nil, "Scheme fallback order (default https,http)")
	f.Bool("insecure", false, "Skip TLS certificate verification")
	f.StringP("out-dir", "o", "", "Directory for report files (default .)")
	f.StringSliceP("format", "f", nil, "Report formats: csv, xlsx, html, md")
	f.Bool("dns-diagnostics", false, "Explain unreachable domains with a DNS lookup")
	f.Float64("launch-rps", 0, "Max probe launches per second (0 = unlimited)")
}

// buildConfig layers defaults, config file, environment and explicitly set flags.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	f := cmd.Flags()
	if f.Changed("concurrency") {
		n, _ := f.GetInt("concurrency")
		if err := cfg.SetConcurrency(n, "--concurrency"); err != nil {
			return cfg, err
		}
	}
	if f.Changed("timeout") {
		d, _ := f.GetDuration("timeout")
		if err := cfg.SetTimeout(d, "--timeout"); err != nil {
			return cfg, err
		}
	}
	if f.Changed("schemes") {
		cfg.Schemes, _ = f.GetStringSlice("schemes")
	}
	if f.Changed("insecure") {
		cfg.InsecureTLS, _ = f.GetBool("insecure")
	}
	if f.Changed("out-dir") {
		cfg.OutDir, _ = f.GetString("out-dir")
	}
	if formats, err := f.GetStringSlice("format"); err == nil && f.Changed("format") {
		cfg.Formats = formats
	}
	if f.Changed("dns-diagnostics") {
		cfg.DNSDiagnostics, _ = f.GetBool("dns-diagnostics")
	}
	if f.Changed("launch-rps") {
		cfg.LaunchRPS, _ = f.GetFloat64("launch-rps")
	}
	if f.Changed("max-redirects") {
		cfg.MaxRedirects, _ = f.GetInt("max-redirects")
	}
	if f.Changed("screenshot-dir") {
		cfg.ScreenshotDir, _ = f.GetString("screenshot-dir")
	}
	if f.Changed("width") {
		cfg.ViewportWidth, _ = f.GetInt("width")
	}
	if f.Changed("height") {
		cfg.ViewportHeight, _ = f.GetInt("height")
	}
	if f.Changed("settle") {
		cfg.Settle, _ = f.GetDuration("settle")
	}
	if f.Changed("chrome-path") {
		cfg.ChromePath, _ = f.GetString("chrome-path")
	}
	if f.Changed("db") {
		cfg.DatabasePath, _ = f.GetString("db")
	}
	if off, _ := f.GetBool("no-history"); off {
		cfg.DatabasePath = ""
	}
	if v, _ := f.GetBool("verbose"); v {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func readInput(cmd *cobra.Command, args []string) ([]string, error) {
	path := defaultInput
	if len(args) == 1 {
		path = args[0]
	}
	if path == "-" {
		return input.ReadDomains(cmd.InOrStdin())
	}
	return input.LoadDomains(path)
}

func runProbe(cmd *cobra.Command, v domain.Variant, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	formats, err := report.ParseFormats(cfg.FormatsFor(v))
	if err != nil {
		return err
	}

	var console io.Writer
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		console = cmd.ErrOrStderr()
	}
	logger, err := logging.New(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: console})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	domains, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		return errors.New("no domains to probe")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist, run := openHistory(ctx, cfg, v, len(domains), logger)
	if hist != nil {
		defer hist.Close()
	}
	var sink repo.ResultSink
	if run != nil {
		sink = repo.RunSink{Store: hist, RunID: run.ID}
	}

	out := cmd.OutOrStdout()
	r := runner.New(cfg, v, logger)
	r.Progress = func(done, total int, res *domain.ProbeResult) {
		fmt.Fprintf(out, "[%d/%d] %s -> %s\n", done, total, res.Domain, res.Classification)
	}

	start := time.Now()
	results, runErr := r.Run(ctx, domains, sink)
	if results == nil && runErr != nil {
		finishHistory(hist, run, domain.RunFailed, logger)
		return runErr
	}
	elapsed := time.Since(start)

	status := domain.RunFinished
	if runErr != nil {
		status = domain.RunFailed
	}
	finishHistory(hist, run, status, logger)

	base := "domain_access_results"
	if v == domain.VariantCapture {
		base = "screenshot_results"
	}
	paths, werr := report.WriteFiles(cfg.OutDir, base, formats, v, results)
	for _, p := range paths {
		fmt.Fprintln(out, "✔ wrote", p)
	}
	fmt.Fprintf(out, "\nDone in %s: %s\n", elapsed.Round(time.Millisecond), report.Summarize(results))
	if run != nil {
		fmt.Fprintln(out, "run id:", run.ID)
	}

	nctx := context.WithoutCancel(ctx)
	if err := notify.SendRun(nctx, notify.FromConfig(cfg.SlackWebhookURL), v, results, elapsed); err != nil {
		logger.Warn("notify_error", zap.Error(err))
	}

	if werr != nil {
		return werr
	}
	if errors.Is(runErr, context.Canceled) {
		return errors.New("interrupted: unfinished domains were reported as OFFLINE_OR_TIMEOUT")
	}
	return runErr
}

// openHistory returns nil values when history is disabled or unavailable;
// a broken history database never blocks a run.
func openHistory(ctx context.Context, cfg config.Config, v domain.Variant, total int, logger *zap.Logger) (*sqlite.Store, *domain.Run) {
	if cfg.DatabasePath == "" {
		return nil, nil
	}
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Warn("history_open_error", zap.String("path", cfg.DatabasePath), zap.Error(err))
		return nil, nil
	}
	run := &domain.Run{Variant: v, Total: total}
	if err := st.CreateRun(ctx, run); err != nil {
		logger.Warn("history_create_error", zap.Error(err))
		st.Close()
		return nil, nil
	}
	return st, run
}

func finishHistory(st *sqlite.Store, run *domain.Run, status domain.RunStatus, logger *zap.Logger) {
	if st == nil || run == nil {
		return
	}
	if err := st.FinishRun(context.Background(), run.ID, status, time.Now().UTC()); err != nil {
		logger.Warn("history_finish_error", zap.String("run_id", string(run.ID)), zap.Error(err))
	}
}
