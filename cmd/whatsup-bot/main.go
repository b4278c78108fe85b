package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/whatsup-com/whatsup-bot/internal/auth"
	"github.com/whatsup-com/whatsup-bot/internal/flow"
	"github.com/whatsup-com/whatsup-bot/internal/genai"
	"github.com/whatsup-com/whatsup-bot/internal/media"
	"github.com/whatsup-com/whatsup-bot/internal/messaging"
	"github.com/whatsup-com/whatsup-bot/internal/session"
	"github.com/whatsup-com/whatsup-bot/internal/store"
	"github.com/whatsup-com/whatsup-bot/internal/util"
	"github.com/whatsup-com/whatsup-bot/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for bot state data
	DefaultStateDir = "/var/lib/whatsup-bot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "whatsup.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow session database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
	// DefaultWebhookAddr is the default listen address for the Twilio webhook server
	DefaultWebhookAddr = ":8080"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping WhatsUp bot with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"store_dsn_set", *flags.storeDSN != "",
		"backend", *flags.backend)
	if err := run(flags); err != nil {
		slog.Error("WhatsUp bot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("WhatsUp bot exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir    string
	StoreDSN    string
	WhatsAppDSN string
	OpenAIKey   string
	Backend     string
	WebhookAddr string
	SessionTTL  time.Duration
}

// Flags holds command line flag values
type Flags struct {
	qrOutput    *string
	numeric     *bool
	stateDir    *string
	storeDSN    *string
	waDSN       *string
	openaiKey   *string
	backend     *string
	webhookAddr *string
	sessionTTL  *time.Duration
}

// initializeLogger sets up structured logging. Debug level is the default;
// WHATSUP_DEBUG=false drops it to info.
func initializeLogger() {
	level := slog.LevelDebug
	if !util.ParseBoolEnv("WHATSUP_DEBUG", true) {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:    os.Getenv("WHATSUP_STATE_DIR"),
		StoreDSN:    os.Getenv("DATABASE_URL"),
		WhatsAppDSN: os.Getenv("WHATSAPP_DB_DSN"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		Backend:     os.Getenv("MESSAGING_BACKEND"),
		WebhookAddr: os.Getenv("WEBHOOK_ADDR"),
		SessionTTL:  util.ParseDurationEnv("SESSION_TTL", session.DefaultTTL),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No WHATSUP_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.StoreDSN == "" {
		config.StoreDSN = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.StoreDSN)
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, DefaultWhatsAppDBFileName)
		slog.Debug("No WHATSAPP_DB_DSN provided, defaulting to SQLite", "sqlite_path", config.WhatsAppDSN)
	}
	if config.Backend == "" {
		config.Backend = "whatsmeow"
	}
	if config.WebhookAddr == "" {
		config.WebhookAddr = DefaultWebhookAddr
	}

	slog.Debug("environment variables loaded",
		"WHATSUP_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.StoreDSN != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"MESSAGING_BACKEND", config.Backend,
		"SESSION_TTL", config.SessionTTL)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:    flag.String("qr-output", "", "path to write login QR code"),
		numeric:     flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for bot data (overrides $WHATSUP_STATE_DIR)"),
		storeDSN:    flag.String("db-dsn", config.StoreDSN, "database DSN for the persistence store (overrides $DATABASE_URL)"),
		waDSN:       flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the whatsmeow session store (overrides $WHATSAPP_DB_DSN)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		backend:     flag.String("backend", config.Backend, "messaging backend: whatsmeow or twilio (overrides $MESSAGING_BACKEND)"),
		webhookAddr: flag.String("webhook-addr", config.WebhookAddr, "listen address for the Twilio webhook server (overrides $WEBHOOK_ADDR)"),
		sessionTTL:  flag.Duration("session-ttl", config.SessionTTL, "idle session lifetime (overrides $SESSION_TTL)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"storeDSN_set", *flags.storeDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"backend", *flags.backend,
		"sessionTTL", *flags.sessionTTL)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	for _, dsn := range []string{*flags.storeDSN, *flags.waDSN} {
		if store.DetectDSNType(dsn) == "postgres" {
			continue
		}
		dir := filepath.Dir(strings.TrimPrefix(dsn, "file:"))
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "dir", dir)
			return err
		}
	}
	return nil
}

// run wires the modules together and blocks until shutdown.
func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(buildStoreOptions(flags)...)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	authProvider := auth.NewStoreProvider(st)

	aiClient, err := buildGenAIClient(flags)
	if err != nil {
		return err
	}

	mediaStore, err := media.NewStore(filepath.Join(*flags.stateDir, "media"))
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}

	msgService, err := buildMessagingService(ctx, flags)
	if err != nil {
		return err
	}
	defer msgService.Stop()

	sessions := session.NewManager(session.WithTTL(*flags.sessionTTL))
	defer sessions.Stop()

	if err := msgService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}

	controller := flow.NewController(sessions, st, authProvider, aiClient, msgService, mediaStore)
	controller.Run(ctx)
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.storeDSN != "" {
		if store.DetectDSNType(*flags.storeDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.storeDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.storeDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.storeDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIClient constructs the AI responder. A missing API key degrades to
// a disabled responder so the bot keeps serving structured flows.
func buildGenAIClient(flags Flags) (genai.ClientInterface, error) {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Warn("GenAI client unavailable, AI-assisted browse will degrade", "error", err)
		return disabledAI{}, nil
	}
	return client, nil
}

// disabledAI always fails so the flow controller's fail-open apology applies.
type disabledAI struct{}

func (disabledAI) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", errors.New("AI responder not configured")
}

// buildMessagingService constructs the configured messaging backend.
func buildMessagingService(ctx context.Context, flags Flags) (messaging.Service, error) {
	switch *flags.backend {
	case "twilio":
		client, err := messaging.NewTwilioClient()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Twilio client: %w", err)
		}
		service := messaging.NewTwilioService(client)
		startWebhookServer(ctx, service, *flags.webhookAddr)
		return service, nil

	case "whatsmeow", "":
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(*flags.waDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize WhatsApp client: %w", err)
		}
		return messaging.NewWhatsAppService(client), nil

	default:
		return nil, fmt.Errorf("unknown messaging backend %q", *flags.backend)
	}
}

// startWebhookServer serves the Twilio inbound webhook until ctx is cancelled.
func startWebhookServer(ctx context.Context, service *messaging.TwilioService, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/twilio", service.TwilioWebhookHandler)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		slog.Info("Starting Twilio webhook server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Webhook server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Webhook server shutdown error", "error", err)
		}
	}()
}
