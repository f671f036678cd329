package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "config":
		err = cmdConfig()
	case "login":
		err = cmdLogin(os.Args[2:])
	case "ingest":
		err = cmdIngest(os.Args[2:])
	case "practice":
		err = cmdPractice(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("solvehelper %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Solve Helper - AI hints and timed practice for competitive programming

Usage:
  solvehelper <command> [arguments]

Setup Commands:
  init                  Initialize ~/.solvehelper (first-time setup)
  config                Show current configuration
  login [email]         Log in to the API daemon and store the token

Ingestion Commands (use the daemon's SOLVE_* environment):
  ingest problems       Import the problem catalog and difficulties
  ingest contests       Import contests and their problem lists
  ingest statements     Scrape statements, samples and editorials
      --start N         Resume from catalog index N
  ingest submissions    Import accepted submissions for users with a handle
  ingest hints          Queue hint generation for problems without hints

Practice Commands:
  practice <problem>    Run a practice timer, revealing hints as they unlock
      --minutes M       Time limit in minutes (0 for untimed)

Integration Commands:
  mcp                   Start MCP server on stdio

Other:
  help                  Show this help message
  version               Show version information

Examples:
  solvehelper login me@example.com
  solvehelper ingest statements --start 1200
  solvehelper practice abc300_c --minutes 30`)
}
