// Package main is the kura CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kura/internal/cli"
	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/server"
	"github.com/hyperjump/kura/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kura/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory so that "kura server" from a project dir uses
// that project's config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "query":
		runQuery()
	case "chat":
		runChat()
	case "reload":
		runReload()
	case "stats":
		runStats()
	case "chunks":
		runChunks()
	case "build":
		runBuild()
	case "init-config":
		runInitConfig()
	case "version", "--version", "-v":
		fmt.Printf("kura version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`kura - question answering over tabular knowledge bases

Usage: kura <command> [flags]

Commands:
  server        Start the HTTP API server
  query         Fetch the fused context set for a prompt
  chat          Ask a question and generate an answer
  reload        Rebuild the knowledge base from its configured source
  stats         Show knowledge base statistics
  chunks        Keyword lookup over the loaded chunks
  build         Load the source and build a knowledge base in-process (validation)
  init-config   Write a config file with default values
  version       Print the version
  help          Show this help

Run "kura <command> -h" for command flags.
`)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("source", cfg.Source.Type),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.String("generation", cfg.Generation.Provider),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if components.Source != nil {
		if _, err := components.Manager.ReloadFromSource(ctx); err != nil {
			logger.Warn("initial knowledge base load failed; serving uninitialized", zap.Error(err))
		}
	}

	w, err := startWatcher(ctx, cfg, components, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	if w != nil {
		defer w.Stop()
	}

	srv := server.NewServer(components.Engine, components.Manager, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// argsReorder moves any flags (and their values) that appear after the prompt
// to the front of the slice so that flag.Parse() sees them. The flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args with spaces so multi-word prompts
// work the same with or without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type queryFlags struct {
	serverURL *string
	k         *int
	noLocal   *bool
	external  stringList
	output    *string
}

func addQueryFlags(fs *flag.FlagSet) *queryFlags {
	qf := &queryFlags{
		serverURL: fs.String("server", defaultServerURL, "server URL"),
		k:         fs.Int("k", 0, "number of local neighbours (0 = server default)"),
		noLocal:   fs.Bool("no-local", false, "skip local knowledge base retrieval"),
		output:    fs.String("output", "text", "output format: text or json"),
	}
	fs.Var(&qf.external, "context", "external context passage (repeatable)")
	return qf
}

func (qf *queryFlags) request(prompt string) models.QueryRequest {
	useLocal := !*qf.noLocal
	return models.QueryRequest{
		Prompt:          prompt,
		K:               *qf.k,
		UseLocal:        &useLocal,
		ExternalContext: qf.external,
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	qf := addQueryFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))

	prompt := joinArgs(fs.Args())
	if prompt == "" {
		fmt.Println("Usage: kura query [flags] <prompt>")
		os.Exit(1)
	}
	req := qf.request(prompt)
	resp, err := queryViaHTTP(*qf.serverURL, &req)
	if err != nil {
		fail("Query failed: %v", err)
	}
	if err := cli.WriteQueryResponse(os.Stdout, resp, cli.ParseOutputFormat(*qf.output)); err != nil {
		fail("Output failed: %v", err)
	}
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	qf := addQueryFlags(fs)
	maxNewTokens := fs.Int("max-new-tokens", 0, "maximum tokens to generate (0 = server default)")
	temperature := fs.Float64("temperature", 0, "sampling temperature (0 = server default)")
	topP := fs.Float64("top-p", 0, "nucleus sampling probability (0 = server default)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	prompt := joinArgs(fs.Args())
	if prompt == "" {
		fmt.Println("Usage: kura chat [flags] <question>")
		os.Exit(1)
	}
	req := &models.ChatRequest{
		QueryRequest: qf.request(prompt),
		SamplingParams: models.SamplingParams{
			MaxNewTokens: *maxNewTokens,
			Temperature:  *temperature,
			TopP:         *topP,
		},
	}
	resp, err := chatViaHTTP(*qf.serverURL, req)
	if err != nil {
		fail("Chat failed: %v", err)
	}
	if err := cli.WriteChatResponse(os.Stdout, resp, cli.ParseOutputFormat(*qf.output)); err != nil {
		fail("Output failed: %v", err)
	}
}

func runReload() {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	res, err := reloadViaHTTP(*serverURL)
	if err != nil {
		fail("Reload failed: %v", err)
	}
	if err := cli.WriteReloadResult(os.Stdout, res, cli.ParseOutputFormat(*output)); err != nil {
		fail("Output failed: %v", err)
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	stats, err := statsViaHTTP(*serverURL)
	if err != nil {
		fail("Stats failed: %v", err)
	}
	if err := cli.WriteStats(os.Stdout, stats, cli.ParseOutputFormat(*output)); err != nil {
		fail("Output failed: %v", err)
	}
}

func runChunks() {
	fs := flag.NewFlagSet("chunks", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	limit := fs.Int("limit", 10, "maximum number of chunks")
	fuzzy := fs.Bool("fuzzy", false, "enable typo-tolerant matching")
	column := fs.String("column", "", "only chunks from rows with this column")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Println("Usage: kura chunks [flags] <keywords>")
		os.Exit(1)
	}
	list, err := chunksViaHTTP(*serverURL, query, *limit, *fuzzy, *column)
	if err != nil {
		fail("Lookup failed: %v", err)
	}
	if err := cli.WriteChunks(os.Stdout, list, cli.ParseOutputFormat(*output)); err != nil {
		fail("Output failed: %v", err)
	}
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()
	if components.Source == nil {
		fail("Build failed: no knowledge source configured")
	}
	if _, err := components.Manager.ReloadFromSource(context.Background()); err != nil {
		fail("Build failed: %v", err)
	}
	stats := components.Manager.Stats()
	if err := cli.WriteStats(os.Stdout, &stats, cli.ParseOutputFormat(*output)); err != nil {
		fail("Output failed: %v", err)
	}
}

func runInitConfig() {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "config file to write")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*path, *force); err != nil {
		fail("init-config failed: %v", err)
	}
	fmt.Printf("Wrote %s\n", *path)
}

func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		}
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Source.Path = "./knowledge.csv"
	return config.Save(path, cfg)
}
