package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"sms-planner/internal/config"
	"sms-planner/internal/handler"
	"sms-planner/internal/llm"
	"sms-planner/internal/logging"
	"sms-planner/internal/parser"
	"sms-planner/internal/router"
	"sms-planner/internal/sms"
	"sms-planner/internal/storage"
	"sms-planner/internal/venue"
	"sms-planner/internal/whatsapp"

	"github.com/rs/zerolog"
)

func main() {
	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Planner stopped")
	}
	log.Info().Msg("Goodbye")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.DBDriver == "sqlite3" {
		if err := os.MkdirAll("data", 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN, logging.Component(log, "store"))
	if err != nil {
		return err
	}
	defer store.Close()

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, logging.Component(log, "llm"))
	var (
		parseOracle parser.Oracle
		venueOracle venue.Oracle
	)
	if llmClient.Enabled() {
		parseOracle, venueOracle = llmClient, llmClient
	} else {
		log.Info().Msg("No LLM endpoint configured, using deterministic parsers only")
	}

	var cache venue.KVStore
	if cfg.RedisAddr != "" {
		redisStore := venue.NewRedisKVStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisStore.Close()
		if err := redisStore.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, venue cache disabled")
		} else {
			cache = redisStore
		}
	}

	h := handler.New(
		parser.New(parseOracle, cfg.LLMTimeout, logging.Component(log, "parser")),
		venue.NewService(venueOracle, cache, cfg.VenueCacheTTL, cfg.VenueTimeout, logging.Component(log, "venue")),
		handler.Config{DefaultLocation: cfg.DefaultLocation, Location: cfg.Location()},
		logging.Component(log, "handler"),
	)
	limiter := router.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	routerLog := logging.Component(log, "router")

	switch cfg.Transport {
	case "twilio":
		sender := sms.NewTwilioSender(cfg.TwilioBaseURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logging.Component(log, "sms"))
		r := router.New(store, h, sender, limiter, routerLog)
		server := sms.NewServer(r.Handle, store, logging.Component(log, "sms"))
		return server.ListenAndServe(ctx, ":"+cfg.Port)

	case "whatsapp":
		if err := os.MkdirAll(cfg.WhatsAppDataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create WhatsApp data directory: %w", err)
		}
		service, err := whatsapp.NewService(ctx, &whatsapp.Config{DataDir: cfg.WhatsAppDataDir}, logging.Component(log, "whatsapp"))
		if err != nil {
			return err
		}
		r := router.New(store, h, service, limiter, routerLog)
		service.SetInboundHandler(r.Handle)

		fmt.Println("Connecting to WhatsApp...")
		if err := service.Connect(ctx); err != nil {
			return err
		}
		defer service.Disconnect()
		fmt.Println("✅ Connected to WhatsApp! The planner is listening.")
		<-ctx.Done()
		return nil

	case "console":
		r := router.New(store, h, consoleSender{}, limiter, routerLog)
		return runConsole(ctx, r)
	}
	return fmt.Errorf("unknown transport %q", cfg.Transport)
}

type consoleSender struct{}

func (consoleSender) Send(_ context.Context, to, body string) error {
	fmt.Printf("\n📤 SMS to %s:\n%s\n", to, body)
	return nil
}

// runConsole reads "PHONE: text" lines from stdin and prints the replies.
func runConsole(ctx context.Context, r *router.Router) error {
	fmt.Println("🎉 SMS Planner console")
	fmt.Println("======================")
	fmt.Println("Type messages as \"PHONE: text\", e.g. \"5105550001: hi\". Ctrl-D to exit.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("\n> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			from, body, found := strings.Cut(line, ":")
			if !found || strings.TrimSpace(from) == "" {
				fmt.Println("Invalid input. Use \"PHONE: text\".")
				continue
			}
			reply := r.Handle(ctx, strings.TrimSpace(from), strings.TrimSpace(body))
			if reply != "" {
				fmt.Printf("\n📥 Reply to %s:\n%s\n", strings.TrimSpace(from), reply)
			}
		}
	}
}
