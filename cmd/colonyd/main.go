// Package main runs the agent colony daemon: credential refresh,
// auto-publish, mention discovery (with trade command processing), and
// colony interactions, all against a shared store.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agent-colony/internal/colony"
	"agent-colony/internal/credentials"
	"agent-colony/internal/engine"
	"agent-colony/internal/generation"
	"agent-colony/internal/mentions"
	"agent-colony/internal/observability"
	"agent-colony/internal/platform"
	"agent-colony/internal/publish"
	"agent-colony/internal/storage"
	chstore "agent-colony/internal/storage/clickhouse"
	"agent-colony/internal/storage/memory"
	"agent-colony/internal/storage/migrations"
	pgstore "agent-colony/internal/storage/postgres"
	"agent-colony/internal/trade"
	"agent-colony/internal/wallet"
)

// allStores holds all storage implementations.
type allStores struct {
	agents       storage.AgentStore
	creds        storage.CredentialStore
	mentions     storage.MentionStore
	trades       storage.TradeStore
	publishes    storage.PublishStore
	interactions storage.InteractionStore
	audit        storage.AuditLog
}

func main() {
	// Load .env file if exists; system env vars win.
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	platformURL := flag.String("platform-url", os.Getenv("PLATFORM_URL"), "Social platform API base URL")
	platformToken := flag.String("platform-app-token", os.Getenv("PLATFORM_APP_TOKEN"), "Application-level platform token for bulk search")
	generationURL := flag.String("generation-url", os.Getenv("GENERATION_URL"), "Content generation service base URL")
	generationKey := flag.String("generation-api-key", os.Getenv("GENERATION_API_KEY"), "Content generation service API key")
	walletURL := flag.String("wallet-url", os.Getenv("WALLET_URL"), "Swap execution service base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "Optional ClickHouse DSN for the audit archive")
	credentialsKey := flag.String("credentials-key", os.Getenv("CREDENTIALS_KEY"), "Hex-encoded 32-byte AES key for token sealing")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	refreshInterval := flag.Duration("refresh-interval", engine.DefaultRefreshInterval, "Credential refresh cycle interval")
	publishInterval := flag.Duration("publish-interval", engine.DefaultPublishInterval, "Auto-publish cycle interval")
	discoveryInterval := flag.Duration("discovery-interval", engine.DefaultDiscoveryInterval, "Mention discovery cycle interval")
	colonyInterval := flag.Duration("colony-interval", engine.DefaultColonyInterval, "Colony interaction cycle interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[colonyd] ", log.LstdFlags|log.Lshortfile)

	if *platformURL == "" {
		logger.Fatal("--platform-url is required")
	}
	if *generationURL == "" {
		logger.Fatal("--generation-url is required")
	}
	if *walletURL == "" {
		logger.Fatal("--wallet-url is required")
	}
	if *credentialsKey == "" {
		logger.Fatal("--credentials-key is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	key, err := hex.DecodeString(*credentialsKey)
	if err != nil {
		logger.Fatalf("Invalid credentials key: %v", err)
	}
	cipher, err := credentials.NewCipher(key)
	if err != nil {
		logger.Fatalf("Failed to create credential cipher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// External collaborators
	platformClient := platform.NewHTTPClient(*platformURL, *platformToken)
	genClient := generation.NewHTTPClient(*generationURL, *generationKey)
	walletClient := wallet.NewHTTPClient(*walletURL)

	tokens := credentials.NewProvider(stores.creds, platformClient, cipher)

	refresher := credentials.NewRefresher(credentials.RefresherOptions{
		Agents:   stores.agents,
		Provider: tokens,
		Audit:    stores.audit,
		Logger:   log.New(os.Stdout, "[refresh] ", log.LstdFlags),
	})

	publishLoop := publish.NewLoop(publish.LoopOptions{
		Agents:   stores.agents,
		Records:  stores.publishes,
		Gen:      genClient,
		Platform: platformClient,
		Tokens:   tokens,
		Logger:   log.New(os.Stdout, "[publish] ", log.LstdFlags),
	})

	processor := trade.NewProcessor(trade.ProcessorOptions{
		Trades:   stores.trades,
		Mentions: stores.mentions,
		Audit:    stores.audit,
		Pending:  trade.NewPendingRequests(0),
		Platform: platformClient,
		Tokens:   tokens,
		Gen:      genClient,
		Wallet:   walletClient,
		Logger:   log.New(os.Stdout, "[trade] ", log.LstdFlags),
	})

	mentionsLogger := log.New(os.Stdout, "[mentions] ", log.LstdFlags)
	source := mentions.NewSelector(mentions.SelectorOptions{
		Primary: mentions.NewBulkSource(mentions.BulkSourceOptions{
			Client: platformClient,
			Logger: mentionsLogger,
		}),
		Fallback: mentions.NewPerAgentSource(mentions.PerAgentSourceOptions{
			Client: platformClient,
			Tokens: tokens,
			Logger: mentionsLogger,
		}),
		Logger: mentionsLogger,
	})
	discoveryLoop := mentions.NewLoop(mentions.LoopOptions{
		Agents:    stores.agents,
		Registry:  stores.mentions,
		Source:    source,
		Processor: processor,
		Logger:    mentionsLogger,
	})

	colonyLoop := colony.NewLoop(colony.LoopOptions{
		Agents:       stores.agents,
		Interactions: stores.interactions,
		Publishes:    stores.publishes,
		Gen:          genClient,
		Platform:     platformClient,
		Tokens:       tokens,
		Logger:       log.New(os.Stdout, "[colony] ", log.LstdFlags),
	})

	eng := engine.New(engine.Options{
		Refresher:         refresher,
		Publish:           publishLoop,
		Discovery:         discoveryLoop,
		Colony:            colonyLoop,
		RefreshInterval:   *refreshInterval,
		PublishInterval:   *publishInterval,
		DiscoveryInterval: *discoveryInterval,
		ColonyInterval:    *colonyInterval,
		Logger:            logger,
	})

	go startHTTPServer(*metricsAddr, logger)

	eng.Start()
	logger.Println("Engine started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, shutting down...", sig)

	eng.Stop()
	logger.Println("Shutdown complete")
}

// createStores creates all required stores and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			agents:       memory.NewAgentStore(),
			creds:        memory.NewCredentialStore(),
			mentions:     memory.NewMentionStore(),
			trades:       memory.NewTradeStore(),
			publishes:    memory.NewPublishStore(),
			interactions: memory.NewInteractionStore(),
			audit:        memory.NewAuditLog(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	var audit storage.AuditLog = pgstore.NewAuditLog(pool)
	cleanup := func() { pool.Close() }

	// Optional analytics archive: audit entries are teed into ClickHouse.
	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
		}
		audit = storage.NewTeeAuditLog(audit, chstore.NewEventArchive(chConn), logger)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	stores := &allStores{
		agents:       pgstore.NewAgentStore(pool),
		creds:        pgstore.NewCredentialStore(pool),
		mentions:     pgstore.NewMentionStore(pool),
		trades:       pgstore.NewTradeStore(pool),
		publishes:    pgstore.NewPublishStore(pool),
		interactions: pgstore.NewInteractionStore(pool),
		audit:        audit,
	}
	return stores, cleanup, nil
}

// startHTTPServer starts the HTTP server for health and metrics.
func startHTTPServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting HTTP server on %s", addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}
