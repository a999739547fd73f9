package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lox/crashgame/internal/client"
	"github.com/lox/crashgame/internal/tui"
)

// WatchCmd follows rounds in a full-screen terminal view
type WatchCmd struct {
	Server  string `kong:"default='http://localhost:8000',help='Server base URL'"`
	User    string `kong:"default='spectator',short='u',help='Player id to watch as'"`
	LogFile string `kong:"help='Write client logs to this file (the terminal is taken by the view)'"`
}

func (c *WatchCmd) Run() error {
	var out io.Writer = io.Discard
	if c.LogFile != "" {
		rotated := &lumberjack.Logger{Filename: c.LogFile, MaxSize: 10, MaxBackups: 2}
		defer func() { _ = rotated.Close() }()
		out = rotated
	}
	logger := log.NewWithOptions(out, log.Options{Level: log.DebugLevel, ReportTimestamp: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := client.NewSpectator(c.Server, c.User, logger).Watch(ctx)
	if err != nil {
		return err
	}

	program := tea.NewProgram(tui.NewModel(messages, logger), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
