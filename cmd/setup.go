package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/nestegg/internal/config"
	"github.com/theirongolddev/nestegg/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := appConfig
	profiles := config.ProfileNames(config.MergeProfiles(config.DefaultProfiles, cfg.Profiles))

	fmt.Println()
	fmt.Println("  Welcome to nestegg!")
	if config.Exists() {
		fmt.Printf("  Editing %s\n", config.ConfigPath())
	}
	fmt.Println()

	vals := tui.ValuesFromConfig(cfg)
	if err := tui.NewSetupForm(&vals, profiles).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	if err := vals.ApplyConfig(&cfg); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `nestegg setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
