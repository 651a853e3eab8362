// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-interactive surface of velpro: the
// planner chat REPL, one-shot rendering and export, flow listing, and
// config management. Running velpro with no command starts the studio
// TUI instead; that path lives in the ui package.
//
// Commands:
//
//	velpro                 Start the interactive studio (TUI)
//	velpro chat            Planning chat REPL with the assistant
//	velpro render FILE     Render a .mmd file and export it
//	velpro list            List saved flows in the library
//	velpro config          Show or initialize the configuration
//	velpro version         Print the version
package cli

import (
	"fmt"
	"os"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/config"
)

// Version is the velpro release version, set at build time via ldflags.
var Version = "dev"

// Run dispatches a CLI command. It returns handled=false when no
// command was given so the caller can start the TUI instead.
func Run(argv []string) (handled bool, err error) {
	if len(argv) == 0 {
		return false, nil
	}

	parser := NewArgParser(argv)

	if parser.BoolFlag("version") {
		printVersion()
		return true, nil
	}
	if parser.BoolFlag("help") || parser.BoolFlag("h") {
		printUsage()
		return true, nil
	}

	switch parser.Subcommand() {
	case "chat":
		return true, HandleChatCommand(parser)
	case "render":
		return true, HandleRenderCommand(parser)
	case "list", "ls":
		return true, HandleListCommand(parser)
	case "config":
		return true, HandleConfigCommand(parser)
	case "version":
		printVersion()
		return true, nil
	case "help":
		printUsage()
		return true, nil
	case "":
		// Only flags were given; unknown ones fall through to usage.
		printUsage()
		return true, nil
	default:
		printUsage()
		return true, fmt.Errorf("unknown command: %s", parser.Subcommand())
	}
}

func printVersion() {
	fmt.Printf("velpro %s\n", Version)
}

func printUsage() {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("velpro - Mermaid flow studio"))
	fmt.Println()
	fmt.Println(headerStyle.Render("Usage"))
	fmt.Println("  velpro [command] [flags]")
	fmt.Println()
	fmt.Println(headerStyle.Render("Commands"))

	commands := []struct {
		cmd  string
		desc string
	}{
		{"(none)", "Start the interactive studio"},
		{"chat", "Planning chat REPL with the assistant"},
		{"render FILE", "Render a Mermaid file and export it"},
		{"list", "List saved flows in the library"},
		{"config [init|path]", "Show or initialize the configuration"},
		{"version", "Print the version"},
	}
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-20s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Render flags"))
	fmt.Println("  " + infoStyle.Render("--format FMT   svg, png, html, or mmd (default: svg)"))
	fmt.Println("  " + infoStyle.Render("--out DIR      Output directory (default: current)"))
	fmt.Println("  " + infoStyle.Render("--name NAME    Flow name used for the output filename"))
	fmt.Println("  " + infoStyle.Render("--scale N      PNG scale factor (default: from config)"))
	fmt.Println("  " + infoStyle.Render("--open         Open the exported file when done"))
	fmt.Println()
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfigCommand shows the config path or writes a default config.
func HandleConfigCommand(parser *ArgParser) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	switch parser.Positional(1) {
	case "init":
		if _, err := os.Stat(path); err == nil && !parser.BoolFlag("force") {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Printf("%s wrote default config to %s\n", commandStyle.Render("[OK]"), path)
		return nil

	case "path", "":
		fmt.Println(path)
		if _, err := os.Stat(path); err != nil {
			fmt.Println(mutedStyle.Render("(not created yet; run: velpro config init)"))
		}
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s", parser.Positional(1))
	}
}
