package main

import (
	"fmt"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _   _  ___  ___ _                      _
  | | | |/ __|/ __| |__  ___  __ _ _ _ __| |
  | |_| | (_ | (__| '_ \/ _ \/ _' | '_/ _' |
   \___/ \___|\___|_.__/\___/\__,_|_| \__,_|

  UGC analytics dashboard

  Usage: ugcboard <command> [options]
         ugcboard --help

  MCP server mode requires piped input.`)
}

// resolveArgs picks what to run. With no command, piped stdin means an MCP
// client is attached; ok is false when there is nothing to run.
func resolveArgs(args []string, interactive bool) (resolved []string, ok bool) {
	if len(args) >= 2 {
		return args, true
	}
	if interactive {
		return nil, false
	}
	return append(args[:len(args):len(args)], "mcp"), true
}

func main() {
	args, ok := resolveArgs(os.Args, isTerminal())
	if !ok {
		printBanner()
		return
	}

	app := newCLIApp(loadRuntime)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
