// SuperIntendent is a conversational assistant backend.
//
// It classifies each message to the best-suited LLM provider (OpenAI,
// Gemini, or DeepSeek), carries a switchable personality, detects
// device-control intents in message text, and persists conversations
// and memories in SQLite. Configuration is loaded from a single YAML
// file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	superintendent serve             Start the API server
//	superintendent parse <text>      Parse text for a device action
//	superintendent version           Print version and build information
//	superintendent -o json version   Output version information as JSON
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tharoslabs/superintendent/internal/actions"
	"github.com/tharoslabs/superintendent/internal/api"
	"github.com/tharoslabs/superintendent/internal/buildinfo"
	"github.com/tharoslabs/superintendent/internal/chat"
	"github.com/tharoslabs/superintendent/internal/config"
	"github.com/tharoslabs/superintendent/internal/conversations"
	"github.com/tharoslabs/superintendent/internal/intent"
	"github.com/tharoslabs/superintendent/internal/llm"
	"github.com/tharoslabs/superintendent/internal/memories"
	"github.com/tharoslabs/superintendent/internal/personality"
	"github.com/tharoslabs/superintendent/internal/settings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the superintendent command. All
// OS-level dependencies are injected as parameters: ctx controls the
// process lifetime, stdout/stderr receive all output, and args is
// os.Args[1:]. Arguments are parsed by hand because the flag package
// relies on package-level globals, which interfere with parallel tests.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "parse":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: superintendent parse <text>")
		}
		return runParse(stdout, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "SuperIntendent - Conversational Assistant Backend")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: superintendent [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  parse        Parse text for a device action (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/superintendent/config.yaml,")
	fmt.Fprintln(w, "  /etc/superintendent/config.yaml")
	return nil
}

// runParse handles "superintendent parse <text>". It runs the device
// action parser on the joined arguments and prints the descriptor plus
// the rendered confirmation. Useful for checking what the parser makes
// of a phrase without starting the server.
func runParse(stdout io.Writer, args []string) error {
	text := strings.Join(args, " ")
	action := actions.Parse(text)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(action); err != nil {
		return err
	}

	if msg := actions.Confirmation(action, personality.Default); msg != "" {
		fmt.Fprintln(stdout, msg)
	}
	return nil
}

// runServe handles the "superintendent serve" subcommand. It loads
// config, opens the database, constructs the provider clients and the
// orchestrator, starts the API server, and blocks until a shutdown
// signal arrives.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text", nil)
	logger.Info("starting SuperIntendent", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level, format, and
	// file destination are known. The initial Info-level text logger
	// covers only the startup banner.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			// Already validated by config.Validate(), so this error path
			// should be unreachable in practice.
			level, _ = config.ParseLogLevel(cfg.LogLevel)
		}
		var rotator *lumberjack.Logger
		if cfg.LogFile.Path != "" {
			rotator = &lumberjack.Logger{
				Filename:   cfg.LogFile.Path,
				MaxSize:    cfg.LogFile.MaxSizeMB,
				MaxBackups: cfg.LogFile.MaxBackups,
				MaxAge:     cfg.LogFile.MaxAgeDays,
			}
		}
		logger = newLogger(stdout, level, cfg.LogFormat, rotator)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"data_dir", cfg.DataDir,
		"default_personality", cfg.DefaultPersonality,
	)

	// --- Data directory and database ---
	// All persistent state (conversations, memories, settings) shares
	// one SQLite database.
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	dbPath := cfg.DataDir + "/superintendent.db"
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer db.Close()
	logger.Info("database opened", "path", dbPath)

	convStore, err := conversations.NewStore(db)
	if err != nil {
		return fmt.Errorf("conversation store: %w", err)
	}
	memStore, err := memories.NewStore(db)
	if err != nil {
		return fmt.Errorf("memory store: %w", err)
	}
	setStore, err := settings.NewStore(db)
	if err != nil {
		return fmt.Errorf("settings store: %w", err)
	}

	// --- Provider clients ---
	// Clients are constructed even without credentials; an unconfigured
	// provider fails at call time with an auth error, and the health
	// endpoint reports which keys are present.
	clients := map[intent.Label]llm.Client{
		intent.LabelOpenAI:   llm.NewOpenAIClient(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.Model, logger),
		intent.LabelGemini:   llm.NewGeminiClient(cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model, logger),
		intent.LabelDeepSeek: llm.NewDeepSeekClient(cfg.Providers.DeepSeek.APIKey, cfg.Providers.DeepSeek.Model, logger),
	}
	for name, p := range map[string]config.ProviderConfig{
		"openai":   cfg.Providers.OpenAI,
		"gemini":   cfg.Providers.Gemini,
		"deepseek": cfg.Providers.DeepSeek,
	} {
		if !p.Configured() {
			logger.Warn("provider has no API key, requests to it will fail", "provider", name)
		}
	}

	classifier := intent.New(logger, 0)
	orch := chat.New(logger, classifier, clients, convStore, time.Duration(cfg.ProviderTimeoutSec)*time.Second)

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, orch, classifier, logger)
	server.SetStores(convStore, memStore, setStore)
	server.SetDB(db)
	server.SetProviderStatus("openai", cfg.Providers.OpenAI.Configured())
	server.SetProviderStatus("gemini", cfg.Providers.Gemini.Configured())
	server.SetProviderStatus("deepseek", cfg.Providers.DeepSeek.Configured())

	// --- Signal handling and graceful shutdown ---
	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	// Start the API server. This blocks until the server is shut down
	// (via context cancellation or fatal error).
	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("SuperIntendent stopped")
	return nil
}

// newLogger creates a structured logger that writes to w at the given
// level and format. Format must be "text" or "json"; any other value
// defaults to text. When rotator is non-nil, output is duplicated to
// the rotating log file.
func newLogger(w io.Writer, level slog.Level, format string, rotator *lumberjack.Logger) *slog.Logger {
	if rotator != nil {
		w = io.MultiWriter(w, rotator)
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
