// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parley is the terminal chat client. It connects to a Parley server
// over websocket, keeps per-room message histories with duplicate
// suppression, and reconnects on a fixed interval when the connection
// drops.
//
// Configuration comes from an optional YAML file (PARLEY_CONFIG or
// --config) with per-flag overrides for the server URL and log output.
package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/parley-im/parley/chat"
	"github.com/parley-im/parley/lib/chatui"
	"github.com/parley-im/parley/lib/config"
	"github.com/parley-im/parley/lib/version"
	"github.com/parley-im/parley/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var serverURL string
	var logOutput string

	flagSet := pflag.NewFlagSet("parley", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file (default: $PARLEY_CONFIG, else built-in defaults)")
	flagSet.StringVar(&serverURL, "server", "", "chat server websocket URL (overrides config)")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file (in addition to status bar display)")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Parley binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("parley")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if logOutput == "" {
		logOutput = cfg.Log.File
	}

	// Background logging (connection manager, session pump) routes
	// through a chatui.LogHandler that displays warnings and errors in
	// the status bar instead of writing to stderr (which would corrupt
	// the alt-screen display). An optional file logger captures all
	// records for post-mortem debugging.
	tuiHandler := chatui.NewLogHandler(slog.LevelWarn)
	var logger *slog.Logger
	if logOutput != "" {
		fileHandler, closeFile, fileErr := openFileLogHandler(logOutput, cfg.Log.Level)
		if fileErr != nil {
			return fmt.Errorf("cannot open log file %s: %w", logOutput, fileErr)
		}
		defer closeFile()
		logger = slog.New(fanoutHandler{tuiHandler, fileHandler})
	} else {
		logger = slog.New(tuiHandler)
	}

	notifier := &chatui.ProgramNotifier{}
	controller, err := chat.NewController(chat.Config{
		ServerURL:   cfg.Server.URL,
		Transport:   &transport.WebSocket{},
		Logger:      logger,
		Notifier:    notifier,
		RetryDelay:  cfg.Reconnect.Delay,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
	})
	if err != nil {
		return err
	}
	defer controller.Logout()

	model := chatui.NewModel(controller, chatui.DefaultTheme)
	program := tea.NewProgram(model, tea.WithAltScreen())
	notifier.SetProgram(program)
	tuiHandler.SetProgram(program)

	_, err = program.Run()
	return err
}

// loadConfig resolves the config source: an explicit --config path
// wins, otherwise the PARLEY_CONFIG environment variable, otherwise
// built-in defaults.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Parley — terminal chat client.

Connects to a Parley server, shows the room list and per-room message
history, and sends messages from the composer. Inside the client:
/join <room-id> switches rooms, /create <name> makes a new room,
/rooms lists what the server announced, /md <text> sends formatted
text, /quit exits.

Usage:
  parley [flags]

Examples:
  # Connect with built-in defaults (ws://localhost:8990/ws)
  parley

  # Connect to a specific server
  parley --server wss://chat.example.com/ws

  # Use a config file and capture logs
  parley --config parley.yaml --log-output /tmp/parley.log.jsonl

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
