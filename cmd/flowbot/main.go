package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/neositio/flowbot/internal/api"
	"github.com/neositio/flowbot/internal/bot"
	"github.com/neositio/flowbot/internal/genai"
	"github.com/neositio/flowbot/internal/store"
	"github.com/neositio/flowbot/internal/twiliowhatsapp"
	"github.com/neositio/flowbot/internal/util"
	"github.com/neositio/flowbot/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for flowbot state data
	DefaultStateDir = "/var/lib/flowbot"
	// DefaultDBFileName is the default SQLite database filename for the WhatsApp session
	DefaultDBFileName = "whatsmeow.db"
	// DefaultFlowsFileName is the default flow document filename
	DefaultFlowsFileName = "flows.json"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := os.MkdirAll(*flags.stateDir, 0o755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		os.Exit(1)
	}

	runCfg := buildRunConfig(flags)
	opts := bot.Options{
		WhatsApp: buildWhatsAppOptions(flags),
		Twilio:   buildTwilioOptions(flags),
		Store:    buildStoreOptions(flags),
		GenAI:    buildGenAIOptions(flags),
		API:      buildAPIOptions(flags),
	}

	slog.Info("Bootstrapping flowbot", "transport", runCfg.Transport, "store", runCfg.StoreBackend, "flows_path", runCfg.FlowsPath)
	if err := bot.Run(context.Background(), runCfg, opts); err != nil {
		slog.Error("flowbot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("flowbot exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir     string
	FlowsFile    string
	FlowAPIBase  string
	Transport    string
	StoreBackend string
	RedisURL     string
	DbDriver     string
	WhatsAppDSN  string
	OpenAIKey    string
	APIAddr      string
	TwilioSID    string
	TwilioToken  string
	TwilioFrom   string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	flowsFile    *string
	flowAPIBase  *string
	transport    *string
	storeBackend *string
	redisURL     *string
	dbDriver     *string
	dbDSN        *string
	openaiKey    *string
	apiAddr      *string
	twilioSID    *string
	twilioToken  *string
	twilioFrom   *string
	qrOutput     *string
	numeric      *bool
	chatMode     *bool
	strictMode   *bool
	resetStore   *bool
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
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
		StateDir:     os.Getenv("FLOWBOT_STATE_DIR"),
		FlowsFile:    os.Getenv("FLOWS_FILE"),
		FlowAPIBase:  os.Getenv("FLOWS_API_URL"),
		Transport:    os.Getenv("TRANSPORT"),
		StoreBackend: os.Getenv("SESSION_STORE"),
		RedisURL:     os.Getenv("REDIS_URL"),
		DbDriver:     os.Getenv("WHATSAPP_DB_DRIVER"),
		WhatsAppDSN:  os.Getenv("WHATSAPP_DB_DSN"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		APIAddr:      os.Getenv("API_ADDR"),
		TwilioSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:   os.Getenv("TWILIO_FROM_NUMBER"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FLOWBOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.FlowsFile == "" {
		config.FlowsFile = filepath.Join("data", DefaultFlowsFileName)
	}
	if config.RedisURL != "" && config.StoreBackend == "" {
		slog.Debug("REDIS_URL set, defaulting session store to redis")
		config.StoreBackend = string(bot.StoreRedis)
	}
	return config
}

// parseCommandLineFlags parses flags with environment values as defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "Directory for flowbot state (lock file, WhatsApp session DB)"),
		flowsFile:    flag.String("flows", config.FlowsFile, "Path to the flow definitions JSON document"),
		flowAPIBase:  flag.String("flows-api", config.FlowAPIBase, "Base URL of a remote flow API to load definitions from (falls back to the local file)"),
		transport:    flag.String("transport", config.Transport, "Messaging transport: whatsmeow, twilio, or console"),
		storeBackend: flag.String("session-store", config.StoreBackend, "Session store backend: memory or redis"),
		redisURL:     flag.String("redis-url", config.RedisURL, "Redis connection URL for the session store"),
		dbDriver:     flag.String("db-driver", config.DbDriver, "WhatsApp session database driver (postgres or sqlite3)"),
		dbDSN:        flag.String("db-dsn", config.WhatsAppDSN, "WhatsApp session database DSN"),
		openaiKey:    flag.String("openai-key", config.OpenAIKey, "OpenAI API key for chat mode"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "Flow editor API listen address"),
		twilioSID:    flag.String("twilio-sid", config.TwilioSID, "Twilio account SID"),
		twilioToken:  flag.String("twilio-token", config.TwilioToken, "Twilio auth token"),
		twilioFrom:   flag.String("twilio-from", config.TwilioFrom, "Twilio WhatsApp sender number"),
		qrOutput:     flag.String("qr-output", "", "Write WhatsApp login QR code to this file instead of the terminal"),
		numeric:      flag.Bool("numeric-code", false, "Use numeric WhatsApp pairing code instead of QR"),
		chatMode:     flag.Bool("chat", util.ParseBoolEnv("CHAT_MODE", false), "Answer with the language model instead of the scripted flows"),
		strictMode:   flag.Bool("strict", util.ParseBoolEnv("STRICT_MODE", false), "Reply with a fixed message instead of starting the default flow on unmatched triggers"),
		resetStore:   flag.Bool("reset-redis", util.ParseBoolEnv("RESET_REDIS", false), "Flush all sessions from the redis store on shutdown"),
	}
	flag.Parse()
	return flags
}

func buildRunConfig(flags Flags) bot.Config {
	return bot.Config{
		FlowsPath:    *flags.flowsFile,
		FlowAPIBase:  *flags.flowAPIBase,
		StateDir:     *flags.stateDir,
		Transport:    bot.Transport(*flags.transport),
		StoreBackend: bot.StoreBackend(*flags.storeBackend),
		ChatMode:     *flags.chatMode,
		StrictMode:   *flags.strictMode,
		SessionTTL:   util.ParseDurationEnv("SESSION_TTL", store.DefaultSessionTTL),
		ResetStore:   *flags.resetStore,
	}
}

// buildWhatsAppOptions builds WhatsApp client options from parsed flags
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var opts []whatsapp.Option
	dsn := *flags.dbDSN
	if dsn == "" {
		dsn = "file:" + filepath.Join(*flags.stateDir, DefaultDBFileName) + "?_foreign_keys=on"
		slog.Debug("No WhatsApp DSN configured, using state directory SQLite database", "dsn", dsn)
	}
	opts = append(opts, whatsapp.WithDBDSN(dsn))
	if *flags.dbDriver != "" {
		opts = append(opts, whatsapp.WithDBDriver(*flags.dbDriver))
	}
	if *flags.qrOutput != "" {
		opts = append(opts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		opts = append(opts, whatsapp.WithNumericCode())
	}
	return opts
}

func buildTwilioOptions(flags Flags) []twiliowhatsapp.Option {
	var opts []twiliowhatsapp.Option
	if *flags.twilioSID != "" {
		opts = append(opts, twiliowhatsapp.WithAccountSID(*flags.twilioSID))
	}
	if *flags.twilioToken != "" {
		opts = append(opts, twiliowhatsapp.WithAuthToken(*flags.twilioToken))
	}
	if *flags.twilioFrom != "" {
		opts = append(opts, twiliowhatsapp.WithFromWhats(*flags.twilioFrom))
	}
	return opts
}

func buildStoreOptions(flags Flags) []store.Option {
	var opts []store.Option
	if *flags.redisURL != "" {
		opts = append(opts, store.WithRedisURL(*flags.redisURL))
	}
	return opts
}

func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	return opts
}

func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	return opts
}
