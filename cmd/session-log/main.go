package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/sheet-sync/internal/config"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/messages"
	"github.com/KirkDiggler/sheet-sync/internal/repositories/presence"
)

func main() {
	sessionID := flag.String("session", "", "session to dump; lists sessions when empty")
	limit := flag.Int("limit", 0, "newest messages to print, 0 for all")
	asJSON := flag.Bool("json", false, "print raw message records")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts, err := cfg.Redis.Options()
	if err != nil {
		log.Fatalf("Failed to parse Redis config: %v", err)
	}

	ctx := context.Background()
	client := redis.NewClient(opts)
	defer client.Close()

	// Test connection
	if _, pingErr := client.Ping(ctx).Result(); pingErr != nil {
		log.Fatalf("Failed to connect to Redis: %v", pingErr)
	}

	if *sessionID == "" {
		listSessions(ctx, client)
		return
	}

	history, err := messages.NewRedis(client, nil).History(ctx, *sessionID, *limit)
	if err != nil {
		log.Fatalf("Failed to read session log: %v", err)
	}

	fmt.Printf("Session %s: %d messages\n", *sessionID, len(history))
	for _, msg := range history {
		if *asJSON {
			data, _ := json.Marshal(msg)
			fmt.Println(string(data))
			continue
		}
		fmt.Printf("  %s %-6s %-12s %s\n", msg.CreatedAt.Format("2006-01-02 15:04:05"), msg.Kind, msg.SenderName, msg.Content)
	}

	peers, err := presence.NewRedis(client, nil).List(ctx, *sessionID)
	if err != nil {
		log.Fatalf("Failed to read presence: %v", err)
	}
	fmt.Printf("\n%d connected:\n", len(peers))
	for _, p := range peers {
		fmt.Printf("  %s: %s HP %d/%d MP %d/%d\n", p.Identity, p.Character.Name,
			p.Character.CurrentHP, p.Character.MaxHP, p.Character.CurrentMP, p.Character.MaxMP)
	}
}

func listSessions(ctx context.Context, client *redis.Client) {
	var keys []string
	iter := client.Scan(ctx, 0, "session:*:messages", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Fatalf("Failed to scan session keys: %v", err)
	}

	fmt.Printf("Found %d sessions:\n", len(keys))
	for _, key := range keys {
		length, err := client.XLen(ctx, key).Result()
		if err != nil {
			fmt.Printf("  %s: ERROR - %v\n", key, err)
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(key, "session:"), ":messages")
		fmt.Printf("  %s: %d messages\n", id, length)
	}
}
