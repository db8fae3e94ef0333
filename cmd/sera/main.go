// Package main is the Sera CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/seradocs/sera/internal/cli"
	"github.com/seradocs/sera/internal/config"
	"github.com/seradocs/sera/internal/embedding"
	"github.com/seradocs/sera/internal/extract"
	"github.com/seradocs/sera/internal/generation"
	"github.com/seradocs/sera/internal/ingest"
	"github.com/seradocs/sera/internal/keyword"
	"github.com/seradocs/sera/internal/models"
	"github.com/seradocs/sera/internal/query"
	"github.com/seradocs/sera/internal/server"
	"github.com/seradocs/sera/internal/storage"
	"github.com/seradocs/sera/internal/store"
	"github.com/seradocs/sera/internal/vector"
	"github.com/seradocs/sera/internal/watcher"
	"github.com/seradocs/sera/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/sera/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "clear":
		runClear()
	case "version", "--version", "-v":
		fmt.Printf("sera version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		ing := components.Ingestor
		watchSvc = watcher.New(
			cfg.Watch.Directories,
			cfg.Ingest.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				if _, err := ing.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := ing.Remove(context.Background(), path); err != nil {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			logger,
		)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Store,
		components.Ingestor,
		components.Query,
		&cfg.Server,
		cfg.Ingest.MaxFileSize,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: sera ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, logger := mustLoad(*configPath)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		files, err := collectFiles(path, cfg.Ingest.Extensions)
		if err != nil {
			fmt.Printf("Failed to scan directory: %v\n", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Printf("No ingestable files found in %s\n", path)
			return
		}
		bar := progressbar.Default(int64(len(files)), "ingesting")
		ingested, failed := 0, 0
		for _, f := range files {
			if _, err := components.Ingestor.IngestFile(ctx, f); err != nil {
				logger.Warn("ingest failed", zap.String("path", f), zap.Error(err))
				failed++
			} else {
				ingested++
			}
			_ = bar.Add(1)
		}
		fmt.Printf("Ingested %d file(s) from %s", ingested, path)
		if failed > 0 {
			fmt.Printf(" (%d failed)", failed)
		}
		fmt.Println()
		return
	}
	resp, err := components.Ingestor.IngestFile(ctx, path)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document ingested: %s (%d chunks)\n", resp.FileID, resp.ChunksCreated)
}

// collectFiles walks root and returns the files whose extensions are in the
// allow list, in walk order.
func collectFiles(root string, extensions []string) ([]string, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(allowed) == 0 || allowed[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// buildQueryText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQueryText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// queryArgsReorder moves any flags (and their values) that appear after the
// query text to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument.
func queryArgsReorder(args []string) []string {
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

func printQueryUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: sera query [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  sera query how do I configure the scheduler
  sera query --mode keyword "error code 503"
  sera query --generation=false --top-k 10 deployment steps
  sera query --output json "what changed in v2"   # structured JSON
`)
}

func runQuery() {
	queryArgs := queryArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	topK := fs.Int("top-k", 0, "number of source chunks to retrieve (0 = server default)")
	mode := fs.String("mode", "", "retrieval mode: semantic, keyword, or hybrid")
	useGeneration := fs.Bool("generation", true, "generate an answer (false = retrieval only)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printQueryUsage(fs) }
	_ = fs.Parse(queryArgs)

	if fs.NArg() < 1 {
		printQueryUsage(fs)
		os.Exit(1)
	}
	queryText := buildQueryText(fs.Args())
	if queryText == "" {
		printQueryUsage(fs)
		os.Exit(1)
	}

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	gen := *useGeneration
	req := &models.QueryRequest{
		Query:         queryText,
		TopK:          *topK,
		Mode:          *mode,
		UseGeneration: &gen,
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids Bleve/SQLite lock conflict).
		response, err := queryViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteQueryResponse(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, logger := mustLoad(*configPath)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Query.Answer(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteQueryResponse(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func queryViaHTTP(serverURL string, req *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: sera delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, logger := mustLoad(*configPath)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Store.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var stats models.Stats
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		stats = *res
	} else {
		cfg, logger := mustLoad(*configPath)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		res, err := components.Store.Stats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		stats = *res
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:  %d\n", stats.TotalDocuments)
		fmt.Printf("chunks:     %d\n", stats.TotalChunks)
		if stats.EmbeddingModel != "" {
			fmt.Printf("embedding:  %s (%d dimensions)\n", stats.EmbeddingModel, stats.Dimensions)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*models.Stats, error) {
	resp, err := http.Get(serverURL + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s models.Stats
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(os.Args[2:])

	if !*yes {
		fmt.Print("This removes all documents, chunks, and messages. Continue? [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg, logger := mustLoad(*configPath)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Store.Clear(context.Background()); err != nil {
		fmt.Printf("Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Store cleared.")
}

// mustLoad loads config and builds a logger, exiting on failure.
func mustLoad(configPath string) (*config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger
}

// Components holds initialized services.
type Components struct {
	Embedder  embedding.Embedder
	Generator generation.Generator
	Store     *store.Store
	Ingestor  *ingest.Ingestor
	Query     *query.Service
}

// Close releases components. The store owns the storage and both indices,
// so closing it closes those too.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.NewEmbedder(&cfg.Embedding, cfg.EmbeddingAPIKey())
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vectorIndex, err := vector.NewFlatIndex(embedder.Dimensions())
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	docStore, err := store.New(st, vectorIndex, keywordIndex,
		cfg.Storage.VectorIndexPath, embedder.ModelName(), embedder.Dimensions(), logger)
	if err != nil {
		_ = keywordIndex.Close()
		_ = vectorIndex.Close()
		_ = st.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	ingestor, err := ingest.NewIngestor(&cfg.Ingest, extract.NewExtractor(), embedder, docStore, logger)
	if err != nil {
		_ = docStore.Close()
		return nil, fmt.Errorf("failed to initialize ingestor: %w", err)
	}

	var generator generation.Generator
	if cfg.Generation.Enabled {
		generator, err = generation.NewOpenAIGenerator(&cfg.Generation, cfg.GenerationAPIKey())
		if err != nil {
			_ = docStore.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
	}

	querySvc := query.NewService(&cfg.Query, docStore, embedder, generator, logger)

	return &Components{
		Embedder:  embedder,
		Generator: generator,
		Store:     docStore,
		Ingestor:  ingestor,
		Query:     querySvc,
	}, nil
}

func printUsage() {
	fmt.Println(`sera - Document Q&A over your own files

Usage:
  sera server [flags]              Start the HTTP server
  sera ingest [flags] <path>       Ingest a file or directory
  sera query [flags] <question>    Ask a question against ingested documents
  sera delete [flags] <id>         Delete a document
  sera status [flags]              Show store status
  sera clear [flags]               Remove all documents and messages
  sera version                     Show version
  sera help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/sera/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path

Query Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --top-k int        Number of source chunks to retrieve
  --mode string      Retrieval mode: semantic, keyword, or hybrid
  --generation       Generate an answer (default: true)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Clear Flags:
  --config string    Config file path
  --yes              Skip confirmation

Examples:
  sera server
  sera ingest ./docs
  sera query "how do I rotate the API key"
  sera query --mode hybrid --top-k 10 release checklist
  sera status --output json
  sera delete 6fa1c9d2-...
  sera clear --yes`)
}
