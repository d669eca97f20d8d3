package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/rfonn/walkieLink/pkg/presence"
	"github.com/rfonn/walkieLink/pkg/ui"
	"github.com/rfonn/walkieLink/pkg/walkie"
)

func main() {
	// The TUI owns the terminal, so logs go to a file.
	f, _ := os.OpenFile("debug.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(slog.New(slog.NewTextHandler(f, nil)))

	cfg := walkie.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "walkieLink",
		Short: "Push-to-talk with friends on your network",
		Run: func(cmd *cobra.Command, args []string) {
			app := walkie.NewApp(cfg, &presence.MDNSAdapter{})
			p := tea.NewProgram(ui.InitialModel(app))
			if _, err := p.Run(); err != nil {
				fmt.Printf("Alas, there's been an error: %v", err)
				os.Exit(1)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "Base URL of the walkie backend")
	cmd.PersistentFlags().StringVar(&cfg.DisplayName, "name", cfg.DisplayName, "Name shown to peers on the network")
	cmd.PersistentFlags().IntVar(&cfg.PresencePort, "port", cfg.PresencePort, "Port announced over mDNS")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}
