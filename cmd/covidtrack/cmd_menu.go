package main

import (
	"context"

	"covidtrack/cmd/covidtrack/menu"
	"covidtrack/cmd/covidtrack/ui"
	"covidtrack/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runMenu runs the interactive menu, with the data file watcher alongside it
// when enabled.
func runMenu(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	st := styles()
	opts := []menu.Option{
		menu.WithStyles(st),
		menu.WithRenderer(ui.NewRenderer(st.Theme, cfg.UI.Width)),
	}

	var program *tea.Program
	var watcher *watch.Watcher
	if cfg.UI.WatchFiles {
		p := dataPaths()
		watcher, err = watch.New([]string{p.Patients, p.Locations, p.Symptoms}, func(c watch.Change) {
			program.Send(menu.DataChangedMsg{Path: c.Path})
		})
		if err != nil {
			logger.Warn("File watching disabled", zap.Error(err))
			watcher = nil
		} else {
			opts = append(opts, menu.WithWriteHook(watcher.Acknowledge))
		}
	}

	program = tea.NewProgram(menu.New(svc, opts...), tea.WithAltScreen())

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
		g.Go(func() error {
			watcher.Wait()
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		return err
	})

	return g.Wait()
}
