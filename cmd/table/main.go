package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KirkDiggler/sheet-sync/internal/config"
	"github.com/KirkDiggler/sheet-sync/internal/domain/character"
	"github.com/KirkDiggler/sheet-sync/internal/events"
	"github.com/KirkDiggler/sheet-sync/internal/logging"
	"github.com/KirkDiggler/sheet-sync/internal/notify"
	"github.com/KirkDiggler/sheet-sync/internal/services"
	"github.com/KirkDiggler/sheet-sync/internal/services/connection"
)

func main() {
	sessionID := flag.String("session", "", "session id to join (required)")
	name := flag.String("name", "", "character name, ignored with -sheet")
	class := flag.String("class", "Aventureiro", "character class, ignored with -sheet")
	sheetPath := flag.String("sheet", "", "path to a character sheet JSON file")
	identity := flag.String("identity", "", "presence identity, random when empty")
	local := flag.Bool("local", false, "use in-process stores instead of redis")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *sessionID == "" {
		logger.Fatal("-session is required")
	}

	sheet, err := loadCharacter(*sheetPath, *name, *class)
	if err != nil {
		logger.Fatal("failed to load character", zap.Error(err))
	}

	providerCfg := &services.ProviderConfig{
		StreamMaxLen:  cfg.Session.StreamMaxLen,
		PresenceTTL:   cfg.Session.PresenceTTL,
		HistoryLimit:  cfg.Session.HistoryLimit,
		RetryAttempts: cfg.Session.RetryAttempts,
		Logger:        logger,
	}

	if *local {
		logger.Info("running without redis, only this process shares the session")
	} else {
		opts, optsErr := cfg.Redis.Options()
		if optsErr != nil {
			logger.Fatal("invalid redis configuration", zap.Error(optsErr))
		}
		redisClient := redis.NewClient(opts)
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				logger.Warn("error closing redis connection", zap.Error(closeErr))
			}
		}()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
			cancel()
			logger.Fatal("failed to connect to redis", zap.Error(pingErr))
		}
		cancel()
		providerCfg.RedisClient = redisClient
	}
	provider := services.NewProvider(providerCfg)

	var notifier connection.Notifier
	if cfg.Discord.WebhookURL != "" {
		webhook, hookErr := notify.NewWebhook(&notify.WebhookConfig{
			URL:      cfg.Discord.WebhookURL,
			Username: cfg.Discord.WebhookUsername,
			Logger:   logger,
		})
		if hookErr != nil {
			logger.Fatal("failed to create discord webhook", zap.Error(hookErr))
		}
		notifier = webhook
	}

	bus := events.NewBus(logger)
	out := newPrinter(os.Stdout)
	out.listen(bus)

	conn := provider.NewConnection(&services.ConnectionOptions{
		SessionID: *sessionID,
		Identity:  *identity,
		Character: sheet,
		Bus:       bus,
		Notifier:  notifier,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, err := conn.Connect(ctx)
	if err != nil {
		logger.Fatal("failed to join session", zap.Error(err))
	}
	for _, msg := range history {
		out.message(msg)
	}
	out.printf("Conectado à sessão %s como %s. Digite /ajuda para ver os comandos.\n", *sessionID, sheet.Name)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	cmds := &commands{conn: conn, out: out}
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			quit, cmdErr := cmds.run(ctx, line)
			if cmdErr != nil {
				out.printf("erro: %v\n", cmdErr)
			}
			if quit {
				break loop
			}
		}
	}

	leaveCtx, cancelLeave := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelLeave()
	if err := conn.Leave(leaveCtx); err != nil {
		logger.Warn("failed to leave cleanly", zap.Error(err))
	}
	fmt.Println("Até a próxima.")
}

func loadCharacter(path, name, class string) (*character.Character, error) {
	if path == "" {
		if name == "" {
			return nil, fmt.Errorf("-name or -sheet is required")
		}
		return character.New(name, class), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	c := character.New("", "")
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse sheet: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sheet: %w", err)
	}
	return c, nil
}
