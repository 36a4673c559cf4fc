package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyship/reviewreply/internal/settings"
)

var (
	settingsAPIKey string
	settingsModel  string
	settingsTone   string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the reply settings",
	Long: `Show or change the shop's reply settings: the completion API key, the
model, and the default tone. These are the same values the settings screen
edits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsShowRun()
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the reply settings (API key masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsShowRun()
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one or more reply settings",
	Example: `  reviewreply settings set --api-key sk-... --tone professional
  reviewreply settings set --model gpt-4o`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsSetRun(cmd)
	},
}

func init() {
	settingsSetCmd.Flags().StringVar(&settingsAPIKey, "api-key", "", "Completion API key")
	settingsSetCmd.Flags().StringVar(&settingsModel, "model", "", "Model name (default "+settings.DefaultModel+")")
	settingsSetCmd.Flags().StringVar(&settingsTone, "tone", "", "Default tone: professional, friendly, or casual")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsShowRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	cfg, err := settings.Load(context.Background(), s)
	if err != nil {
		return err
	}

	key := settings.MaskKey(cfg.APIKey)
	if key == "" {
		key = "(not set)"
	}

	table := ui.Table([]string{"Setting", "Value"})
	table.Append([]string{"api_key", key})
	table.Append([]string{"model", cfg.Model})
	table.Append([]string{"tone", string(cfg.Tone)})
	return table.Render()
}

// settingsSetRun merges the changed flags into the stored record and saves
// it through the same sanitizer the settings screen uses.
func settingsSetRun(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if !flags.Changed("api-key") && !flags.Changed("model") && !flags.Changed("tone") {
		return fmt.Errorf("nothing to change: pass --api-key, --model, or --tone")
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	current, err := settings.Load(ctx, s)
	if err != nil {
		return err
	}

	raw := map[string]string{
		"api_key": current.APIKey,
		"model":   current.Model,
		"tone":    string(current.Tone),
	}
	if flags.Changed("api-key") {
		raw["api_key"] = settingsAPIKey
	}
	if flags.Changed("model") {
		raw["model"] = settingsModel
	}
	if flags.Changed("tone") {
		raw["tone"] = settingsTone
		if !settings.IsAllowedTone(settingsTone) {
			ui.Warning("Unknown tone %q; using %s", settingsTone, settings.DefaultTone)
		}
	}

	if dryRun {
		clean := settings.Sanitize(raw)
		ui.DryRunMsg("Would save model=%s tone=%s api_key=%s", clean.Model, clean.Tone, settings.MaskKey(clean.APIKey))
		return nil
	}

	saved, err := settings.Save(ctx, s, raw)
	if err != nil {
		return err
	}
	ui.Success("Settings saved (model %s, tone %s)", saved.Model, saved.Tone)
	return nil
}
