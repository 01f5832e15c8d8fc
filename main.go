package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

const usage = `wordsearch - find words hidden in a letter grid.

Usage:
  wordsearch [options] serve
  wordsearch [options] solve FILE

Commands:
  serve   Run the HTTP API and web frontend.
  solve   Solve a puzzle file ("-" reads stdin) and print one line per word:
          WORD start_row:start_col end_row:end_col

Options:
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Getenv, os.Stdin, os.Stdout, os.Stderr); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args and dispatches to a command. getenv supplies the
// environment overrides for the config.
func run(ctx context.Context, args []string, getenv func(string) string, stdin io.Reader, stdout, stderr io.Writer) error {
	flagSet := flag.NewFlagSet("wordsearch", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprint(stderr, usage)
		flagSet.PrintDefaults()
	}
	configPath := flagSet.String("config", "", "Path to an HCL config file.")
	logLevel := flagSet.String("log-level", "", "Override the log level: 'debug', 'info', 'warn' or 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}

	cfg, err := LoadConfig(*configPath, getenv)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
		if err := cfg.Validate(); err != nil {
			return &ExitError{Code: 2, Message: err.Error()}
		}
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, stderr)

	switch flagSet.Arg(0) {
	case "serve":
		return serve(ctx, cfg, logger)
	case "solve":
		if flagSet.NArg() != 2 {
			flagSet.Usage()
			return &ExitError{Code: 2, Message: "solve takes exactly one FILE argument"}
		}
		return solveFile(ctx, cfg, flagSet.Arg(1), stdin, stdout)
	case "":
		flagSet.Usage()
		return &ExitError{Code: 2, Message: "missing command"}
	default:
		flagSet.Usage()
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", flagSet.Arg(0))}
	}
}

// solveFile solves the puzzle at path and prints the result lines.
func solveFile(ctx context.Context, cfg *Config, path string, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open puzzle: %w", err)
		}
		defer f.Close()
		in = f
	}

	p, err := ParsePuzzle(in)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	g, err := p.Grid()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	matches, err := SolveConcurrent(ctx, g, p.Words, cfg.SolveWorkers)
	if err != nil {
		return err
	}
	return FormatResults(stdout, matches)
}

// serve runs the HTTP server until SIGINT or SIGTERM.
func serve(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sc scanner
	if cfg.Gemini.ProjectID != "" {
		gemini, err := NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		defer gemini.Close()
		sc = gemini
		logger.Info("Gemini client initialised.", "project", cfg.Gemini.ProjectID, "region", cfg.Gemini.Region, "model", cfg.Gemini.Model)
	} else {
		logger.Info("GCP_PROJECT_ID not set, puzzle photo scanning disabled.")
	}

	srv := NewServer(NewStore(), sc, cfg, logger)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		// SSE streams end with the signal context instead of holding Shutdown open.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening.", "address", "http://localhost"+cfg.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}
