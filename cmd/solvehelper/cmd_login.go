package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/solvehelper/internal/client"
	"github.com/felixgeelhaar/solvehelper/internal/config"
)

// passwordEnv lets scripts log in without a prompt.
const passwordEnv = "SOLVEHELPER_PASSWORD"

// cmdLogin exchanges credentials for a token and stores it in secrets.yaml
func cmdLogin(args []string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	reader := bufio.NewReader(os.Stdin)

	email := cfg.MCP.UserEmail
	if len(args) > 0 {
		email = args[0]
	}
	if email == "" {
		fmt.Print("Email: ")
		email = readLine(reader)
	}

	password := os.Getenv(passwordEnv)
	if password == "" {
		fmt.Print("Password: ")
		password = readLine(reader)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	login, err := client.New(cfg.Server.URL, "").Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cfg.Token = login.Token
	cfg.Handle = login.User.Handle
	if cfg.MCP.UserEmail == "" {
		cfg.MCP.UserEmail = login.User.Email
	}
	if err := config.SaveLocalConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Logged in as %s", login.User.Email)
	if login.User.Handle != "" {
		fmt.Printf(" (%s, rating %d)", login.User.Handle, login.User.Rating)
	}
	fmt.Printf("\nToken expires %s\n", login.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}
