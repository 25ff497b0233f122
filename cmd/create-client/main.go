package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"blacklist/backend/internal/auth"
	"blacklist/backend/internal/config"
	"blacklist/backend/internal/logger"
	"blacklist/backend/internal/storage/factory"
)

func main() {
	username := flag.String("username", "", "客户端用户名")
	password := flag.String("password", "", "客户端密码（至少 8 个字符）")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Println("Usage: create-client -username <name> -password <password>")
		os.Exit(1)
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" {
		fmt.Println("The memory store does not outlive this process.")
		fmt.Println("Set BLACKLIST_DATABASE_TYPE and BLACKLIST_DATABASE_DSN, or use BLACKLIST_AUTH_USERNAME/BLACKLIST_AUTH_PASSWORD to bootstrap a client at server startup.")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 创建存储
	store, err := factory.Open(ctx, cfg, logger.NewDevelopmentLogger())
	if err != nil {
		fmt.Printf("Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	client, err := auth.NewService(store, nil, nil).RegisterClient(ctx, *username, *password)
	if err != nil {
		if errors.Is(err, auth.ErrClientExists) {
			fmt.Printf("Client %q already exists\n", *username)
		} else {
			fmt.Printf("Failed to create client: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("✓ API client created successfully!\n")
	fmt.Printf("  ID:       %s\n", client.ID)
	fmt.Printf("  Username: %s\n", client.Username)
	fmt.Printf("  Storage:  %s\n", cfg.Database.Type)
	fmt.Println("\nExchange the credentials for a token with POST /auth/token.")
}
