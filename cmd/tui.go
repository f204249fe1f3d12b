package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/config"
	"github.com/theirongolddev/nestegg/internal/pipeline"
	"github.com/theirongolddev/nestegg/internal/tui"
	"github.com/theirongolddev/nestegg/internal/tui/theme"
)

var flagEditFirst bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVarP(&flagEditFirst, "edit", "e", false, "Open the parameter form before the first run")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	theme.SetActive(appConfig.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Progress is drawn by the dashboard, not on stderr.
	flagQuiet = true

	opts := tui.Options{
		Context:   ctx,
		Request:   req,
		Profiles:  config.ProfileNames(config.MergeProfiles(config.DefaultProfiles, appConfig.Profiles)),
		EditFirst: flagEditFirst,
	}

	s := openStore()
	var saver pipeline.RunSaver
	if s != nil {
		defer s.Close()
		saver = s
		opts.History = s
	}
	provider, release := newProvider(ctx, s)
	defer release()
	opts.Runner = pipeline.NewRunner(provider, saver)

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
