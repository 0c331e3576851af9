// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parley-echo is a development chat server for the parley client. It
// accepts websocket connections, tracks which room each connection has
// joined, relays chat messages to everyone in the room (including the
// sender, which exercises the client's duplicate suppression), and
// broadcasts room list updates when membership changes.
//
// It keeps everything in memory and does no authentication. It exists
// so the client can be developed and demonstrated without a real
// server.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/parley-im/parley/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var listenAddr string
	var verbose bool

	flagSet := pflag.NewFlagSet("parley-echo", pflag.ContinueOnError)
	flagSet.StringVar(&listenAddr, "listen", ":8990", "address to listen on")
	flagSet.BoolVar(&verbose, "verbose", false, "log every relayed frame")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Parley binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("parley-echo")
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

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	hub := newHub(logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.handleWebSocket)

	logger.Info("listening", "addr", listenAddr)
	return http.ListenAndServe(listenAddr, mux)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Parley echo server — in-memory development chat server.

Serves the Parley websocket protocol on /ws. Chat messages are relayed
to every member of the room, including the sender. Room membership
changes broadcast a fresh room list to all connections.

Usage:
  parley-echo [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
