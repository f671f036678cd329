package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/solvehelper/internal/client"
	"github.com/felixgeelhaar/solvehelper/internal/config"
	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/storage/sqlite"
)

// cmdInit creates ~/.solvehelper, the default config and the practice database
func cmdInit() error {
	fmt.Println("Solve Helper - First-Time Setup")
	fmt.Println("===============================")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Creating ~/.solvehelper directory structure... ")
	dir, err := config.EnsureHomeDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("API server URL [%s]: ", cfg.Server.URL)
	if url := readLine(reader); url != "" {
		cfg.Server.URL = url
	}
	fmt.Printf("Default practice minutes [%d]: ", cfg.Practice.DefaultMinutes)
	if m := readLine(reader); m != "" {
		if _, err := fmt.Sscanf(m, "%d", &cfg.Practice.DefaultMinutes); err != nil {
			fmt.Println("  ⚠ Not a number, keeping the default")
		}
	}

	if err := config.SaveLocalConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Println("Configuration saved ✓")

	fmt.Print("Preparing local practice database... ")
	db, err := sqlite.Open(cfg.PracticeDBPath(dir))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate practice database: %w", err)
	}
	fmt.Println("✓")

	fmt.Print("Checking API server... ")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.New(cfg.Server.URL, "").Health(ctx); err != nil {
		fmt.Println("⚠ Not reachable (practice will run offline)")
	} else {
		fmt.Println("✓")
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. solvehelper login           # Get an API token")
	fmt.Println("  2. solvehelper practice <id>   # Start a timed practice")
	fmt.Println()
	fmt.Println("For IDE integration, configure MCP with the 'solvehelper mcp' command.")
	return nil
}

// cmdConfig prints the CLI configuration without secrets
func cmdConfig() error {
	dir, err := config.HomeDir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token := "not set"
	if cfg.Token != "" {
		token = "set (secrets.yaml)"
	}
	schedule := domain.HintSchedule{Thresholds: cfg.Practice.Thresholds}

	fmt.Println("Solve Helper Configuration")
	fmt.Println("==========================")
	fmt.Printf("Config dir:       %s\n", dir)
	fmt.Printf("Config file:      %s\n", filepath.Join(dir, "config.yaml"))
	fmt.Printf("API server:       %s\n", cfg.Server.URL)
	fmt.Printf("Token:            %s\n", token)
	fmt.Printf("Judge handle:     %s\n", orDash(cfg.Handle))
	fmt.Printf("Practice minutes: %d\n", cfg.Practice.DefaultMinutes)
	fmt.Printf("Hint unlocks:     %d at %v\n", schedule.Count(), cfg.Practice.Thresholds)
	fmt.Printf("Practice DB:      %s\n", cfg.PracticeDBPath(dir))
	fmt.Printf("MCP user:         %s\n", orDash(cfg.MCP.UserEmail))
	return nil
}

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
