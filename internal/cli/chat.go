// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Planning chat REPL for the velpro CLI.
//
// Handles the "velpro chat" command: an interactive conversation with
// the planning assistant, grounded in the project context and the saved
// flows, persisted across sessions via the transcript store.
//
// Interactive commands (during chat):
//
//	/help, /h     Show available commands
//	/clear, /c    Clear the conversation (memory and disk)
//	/history      Show the conversation so far
//	/quit, /q     Exit chat
//	Ctrl+C/Ctrl+D Exit chat

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/cache"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/config"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/gemini"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/library"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/planner"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/project"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/storage"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for assistant replies.
var markdownRenderer *glamour.TermRenderer

func init() {
	style := glamour.WithAutoStyle()
	if !SupportsColor() {
		style = glamour.WithStandardStyle("notty")
	}

	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(GetTerminalWidth()),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails.
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown for terminal display. Returns the
// original content if rendering fails or the renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayReply prints a reply with markdown rendering when stdout is a
// TTY, plain otherwise so piped output stays clean.
func displayReply(reply string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(reply))
	} else {
		fmt.Println(reply)
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for the chat REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Non-empty
// input is appended to the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand handles the "chat" command.
func HandleChatCommand(parser *ArgParser) error {
	if !IsTTY() {
		return fmt.Errorf("chat needs an interactive terminal")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client, err := gemini.NewClient(&gemini.ClientConfig{
		APIKey:            cfg.Assistant.APIKey,
		FlashModel:        cfg.Assistant.FlashModel,
		ProModel:          cfg.Assistant.ProModel,
		ThinkingBudget:    cfg.Assistant.ThinkingBudget,
		Temperature:       cfg.Assistant.Temperature,
		Timeout:           cfg.AssistantTimeout(),
		RequestsPerMinute: cfg.Assistant.RequestsPerMinute,
	})
	if err != nil {
		return fmt.Errorf("set GEMINI_API_KEY or assistant.api_key in config: %w", err)
	}

	if cfg.Cache.Enabled {
		if cacheCfg, err := cache.DefaultConfig(); err == nil {
			cacheCfg.MaxEntries = cfg.Cache.MaxEntries
			cacheCfg.TTL = cfg.CacheTTL()
			if respCache, err := cache.Open(cacheCfg); err == nil {
				client.SetCache(respCache)
				defer respCache.Close()
			}
		}
	}

	// Ground the planner in the saved flows.
	store, err := openFlowStore(cfg)
	if err != nil {
		return err
	}

	projectCtx := project.NewContext()
	projectCtx.Set(cfg.Project.Context)

	transcript, err := storage.NewChatStore()
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}

	updates := make(chan planner.Snapshot, 8)
	session := planner.NewSession(client, transcript, store, projectCtx, func(snap planner.Snapshot) {
		updates <- snap
	})
	session.SetLogger(func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "%s "+format+"\n",
			append([]any{warningStyle.Render("[!]")}, args...)...)
	})

	printChatWelcome(cfg, store, session)

	input := NewChatCLI()
	defer input.Close()

	for {
		text, err := input.ReadInput(promptStyle.Render("velpro> "))
		if err != nil {
			// liner.ErrPromptAborted (Ctrl+C) and EOF (Ctrl+D) both exit.
			fmt.Println()
			fmt.Println(infoStyle.Render("Goodbye!"))
			return nil
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			keepGoing := handleChatSlashCommand(text, session)
			if !keepGoing {
				fmt.Println(infoStyle.Render("Goodbye!"))
				return nil
			}
			continue
		}
		if strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit") {
			fmt.Println(infoStyle.Render("Goodbye!"))
			return nil
		}

		session.Send(text)
		snap := awaitReply(updates)

		if n := len(snap.Messages); n > 0 {
			last := snap.Messages[n-1]
			if last.Role == storage.RoleAssistant {
				fmt.Println()
				displayReply(last.Text)
				fmt.Println()
			}
		}
	}
}

// awaitReply drains snapshots until the session returns to idle.
func awaitReply(updates <-chan planner.Snapshot) planner.Snapshot {
	for snap := range updates {
		if !snap.AwaitingResponse {
			return snap
		}
	}
	return planner.Snapshot{}
}

// openFlowStore loads the flow library into a document store.
func openFlowStore(cfg *config.Config) (*document.Store, error) {
	var lib *library.Library
	var err error
	if cfg.Library.Dir != "" {
		lib, err = library.NewLibraryWithDir(cfg.Library.Dir)
	} else {
		lib, err = library.NewLibrary()
	}
	if err != nil {
		return nil, fmt.Errorf("opening flow library: %w", err)
	}
	defer lib.Close()

	docs, err := lib.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading flows: %w", err)
	}
	return document.NewStoreWithDocuments(docs), nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleChatSlashCommand processes a slash command. Returns false when
// the REPL should exit.
func handleChatSlashCommand(cmd string, session *planner.Session) bool {
	switch strings.ToLower(strings.Fields(cmd)[0]) {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true

	case "/clear", "/c":
		session.Clear()
		fmt.Println(commandStyle.Render("[Conversation cleared]"))
		return true

	case "/history":
		printChatHistory(session.Snapshot())
		return true

	case "/quit", "/q", "/exit":
		return false

	default:
		fmt.Fprintf(os.Stderr, "%s unknown command: %s (type /help for commands)\n",
			errorStyle.Render("[Error]"), cmd)
		return true
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

func printChatWelcome(cfg *config.Config, store *document.Store, session *planner.Session) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("velpro planning chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Model:"),
		commandStyle.Render(cfg.Assistant.FlashModel))
	fmt.Printf("%s %d\n",
		infoStyle.Render("Flows:"),
		len(store.List()))
	if n := len(session.Snapshot().Messages); n > 0 {
		fmt.Printf("%s %d messages restored\n",
			infoStyle.Render("Transcript:"), n)
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

func printChatHelp() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Clear the conversation"},
		{"/history", "Show the conversation so far"},
		{"/quit, /q", "Exit chat"},
	}
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+D exits, arrow keys navigate input history"))
	fmt.Println()
}

func printChatHistory(snap planner.Snapshot) {
	if len(snap.Messages) == 0 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Conversation History"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, msg := range snap.Messages {
		role := "You"
		style := promptStyle
		if msg.Role == storage.RoleAssistant {
			role = "Planner"
			style = welcomeStyle
		}

		// Rune-based truncation keeps multi-byte characters intact.
		content := strings.ReplaceAll(msg.Text, "\n", " ")
		runes := []rune(content)
		if len(runes) > 100 {
			content = string(runes[:100]) + "..."
		}

		fmt.Printf("  %d. %s: %s\n", i+1, style.Render(role), content)
	}
	fmt.Println()
}
