// velpro - a terminal studio for Mermaid flow diagrams.
//
// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/analysis"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/cache"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/cli"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/config"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/export"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/gemini"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/generate"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/library"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/planner"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/project"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/storage"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/ui"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/util"
)

// Version information (set at build time)
var Version = "dev"

func init() {
	cli.Version = Version
}

func main() {
	handled, err := cli.Run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if handled {
		return
	}

	runStudio()
}

// runStudio wires the coordinators together and starts the TUI.
func runStudio() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "velpro: the studio needs a terminal (try 'velpro help' for one-shot commands)")
		os.Exit(1)
	}

	// Honor the terminal's real color capabilities so lipgloss does not
	// emit escapes a dumb terminal cannot handle.
	lipgloss.SetColorProfile(termenv.EnvColorProfile())

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLogger()
	defer logger.Close()

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
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Set GEMINI_API_KEY or assistant.api_key in the config (velpro config path).")
		os.Exit(1)
	}

	if cfg.Cache.Enabled {
		if cacheCfg, err := cache.DefaultConfig(); err == nil {
			cacheCfg.MaxEntries = cfg.Cache.MaxEntries
			cacheCfg.TTL = cfg.CacheTTL()
			if respCache, err := cache.Open(cacheCfg); err == nil {
				client.SetCache(respCache)
				defer respCache.Close()
			} else {
				logger.Printf("cache disabled: %v", err)
			}
		}
	}

	// Flow library: reload saved flows, oldest first, so the most
	// recently updated one ends up active.
	var lib *library.Library
	if cfg.Library.Dir != "" {
		lib, err = library.NewLibraryWithDir(cfg.Library.Dir)
	} else {
		lib, err = library.NewLibrary()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening flow library: %v\n", err)
		os.Exit(1)
	}

	lib.SetSaveDebounce(cfg.AutosaveDebounce())
	lib.SetLogger(logger.Printf)

	docs, err := lib.LoadAll()
	if err != nil {
		logger.Printf("loading flows: %v", err)
	}
	var store *document.Store
	if len(docs) > 0 {
		store = document.NewStoreWithDocuments(docs)
	} else {
		store = document.NewStore()
	}

	app := ui.NewApp()

	var watcher *library.Watcher
	if cfg.Library.WatchEnabled {
		watcher, err = library.NewWatcher(lib.BaseDir, library.DefaultWatchDebounce, app.OnFlowChanged)
		if err == nil {
			err = watcher.Watch()
		}
		if err != nil {
			logger.Printf("flow watcher disabled: %v", err)
			if watcher != nil {
				watcher.Close()
				watcher = nil
			}
		}
	}

	projectCtx := project.NewContext()
	projectCtx.Set(cfg.Project.Context)

	renderC := render.NewCoordinator(render.NewKrokiRenderer(&render.KrokiConfig{
		BaseURL: cfg.Render.KrokiURL,
		Theme:   cfg.Render.Theme,
		Timeout: cfg.RenderTimeout(),
	}), render.DefaultDebounce, app.OnRender)

	analysisC := analysis.NewCoordinator(client, analysis.DefaultDebounce, app.OnAnalysis)
	analysisC.SetLogger(logger.Printf)

	generateC := generate.NewCoordinator(client, store, analysisC, projectCtx, app.OnGenerate)

	transcript, err := storage.NewChatStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening planner transcript: %v\n", err)
		os.Exit(1)
	}
	session := planner.NewSession(client, transcript, store, projectCtx, app.OnPlanner)
	session.SetLogger(logger.Printf)

	model := ui.New(ui.Deps{
		Store:    store,
		Render:   renderC,
		Analysis: analysisC,
		Generate: generateC,
		Planner:  session,
		Project:  projectCtx,
		Library:  lib,
		Export: &export.Options{
			OutputDir:       cfg.Export.OutputDir,
			OpenAfterExport: cfg.Export.OpenAfterExport,
			Scale:           cfg.Export.PNGScale,
			Theme:           cfg.Export.HTMLTheme,
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	app.Attach(p)

	_, runErr := p.Run()

	// Flush pending autosaves before tearing anything down.
	lib.Flush(store.Get)
	lib.Close()
	if watcher != nil {
		watcher.Close()
	}
	renderC.Close()
	analysisC.Close()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running velpro: %v\n", runErr)
		os.Exit(1)
	}
}
