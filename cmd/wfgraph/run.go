package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/config"
	fgerrors "github.com/randalmurphal/wfgraph/pkg/wfgraph/errors"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/httpcap"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/llm"
	"github.com/randalmurphal/wfgraph/pkg/wfgraph/runstore"
)

// envPrefix marks environment variables that override settings.
const envPrefix = "WFGRAPH_"

func (a *app) run(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	configPath := fs.String("config", "", "Path to a YAML or JSON settings file")
	payloadJSON := fs.String("payload", "", "Run payload as a JSON value")
	payloadFile := fs.String("payload-file", "", "Read the run payload from a JSON file")
	runID := fs.String("run-id", "", "Run identifier (default: random UUID)")
	timeout := fs.Duration("timeout", 0, "Cancel the run after this long (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "usage: wfgraph run [flags] <graph-file>")
		return exitUsage
	}

	settings, err := a.loadSettings(*configPath)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return exitUsage
	}
	logger := newLogger(settings, a.stderr)

	payload, err := readPayload(*payloadJSON, *payloadFile)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return exitUsage
	}

	compiled, code := a.load(fs.Arg(0))
	if code != exitOK {
		return code
	}

	base, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		base, cancel = context.WithTimeout(base, *timeout)
		defer cancel()
	}

	ctxOpts := []wfgraph.ContextOption{
		wfgraph.WithLogger(logger),
		wfgraph.WithHTTP(newHTTPClient(settings, logger)),
		wfgraph.WithLLM(newLLMClient(settings, logger)),
	}
	if *runID != "" {
		ctxOpts = append(ctxOpts, wfgraph.WithContextRunID(*runID))
	}

	runOpts := []wfgraph.RunOption{
		wfgraph.WithMaxConcurrency(settings.MaxConcurrency),
		wfgraph.WithObservabilityLogger(logger),
	}

	if settings.StorePath != "" {
		store, err := runstore.NewSQLiteStore(settings.StorePath)
		if err != nil {
			fmt.Fprintf(a.stderr, "open run store: %v\n", err)
			return exitUsage
		}
		defer store.Close()
		runOpts = append(runOpts, wfgraph.WithRunStore(store))
	}

	tel, err := newTelemetry(settings)
	if err != nil {
		fmt.Fprintf(a.stderr, "init telemetry: %v\n", err)
		return exitUsage
	}
	defer tel.shutdown(context.Background())
	runOpts = append(runOpts, tel.runOptions()...)

	result, err := compiled.Run(wfgraph.NewContext(base, ctxOpts...), payload, runOpts...)
	if result == nil {
		fmt.Fprintf(a.stderr, "run: %v\n", err)
		return exitRunFailed
	}

	tel.report(context.Background(), a.stderr)
	if err := writeJSON(a.stdout, result); err != nil {
		fmt.Fprintf(a.stderr, "write result: %v\n", err)
		return exitRunFailed
	}

	switch result.Status {
	case wfgraph.RunSucceeded:
		return exitOK
	case wfgraph.RunCancelled:
		fmt.Fprintln(a.stderr, "run cancelled")
		return exitRunFailed
	default:
		fmt.Fprintf(a.stderr, "run failed: %v\n", err)
		return exitRunFailed
	}
}

// loadSettings reads the optional settings file and overlays WFGRAPH_*
// environment variables.
func (a *app) loadSettings(path string) (config.Settings, error) {
	cfg := config.New(nil)
	if path != "" {
		var err error
		if cfg, err = config.FromFile(path); err != nil {
			return config.Settings{}, err
		}
	}
	return config.LoadSettings(config.FromEnv(cfg, envPrefix, a.environ))
}

func newLogger(s config.Settings, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.LogLevel}
	if s.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newHTTPClient(s config.Settings, logger *slog.Logger) *httpcap.Client {
	return httpcap.NewClient(
		httpcap.WithTimeout(s.HTTPTimeout),
		httpcap.WithRateLimit(s.HTTPRateLimit, s.HTTPBurst),
		httpcap.WithRetry(fgerrors.NewRetryConfig(fgerrors.WithMaxAttempts(s.HTTPMaxAttempts))),
		httpcap.WithLogger(logger),
	)
}

func newLLMClient(s config.Settings, logger *slog.Logger) llm.Client {
	opts := []llm.ClaudeOption{
		llm.WithClaudePath(s.LLMClaudePath),
		llm.WithTimeout(s.LLMTimeout),
	}
	if s.LLMModel != "" {
		opts = append(opts, llm.WithModel(s.LLMModel))
	}
	return llm.NewRetryClient(llm.NewClaudeCLI(opts...),
		llm.WithRetryConfig(fgerrors.NewRetryConfig(fgerrors.WithMaxAttempts(s.LLMMaxAttempts))),
		llm.WithRetryLogger(logger),
	)
}

// readPayload decodes the payload flag or file. With neither set the
// payload is an empty object.
func readPayload(inline, path string) (any, error) {
	if inline != "" && path != "" {
		return nil, errors.New("use either -payload or -payload-file, not both")
	}
	data := []byte(inline)
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return payload, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
