package cmd

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tinyship/reviewreply/internal/llm"
	"github.com/tinyship/reviewreply/internal/settings"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "reviewreply"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage reviewreply configuration.

Running bare 'reviewreply config' is the same as 'reviewreply config show'.
Every key can also be set through an RR_* environment variable or a .env
file in the working directory.

The shop settings (API key, model, tone) are not part of this file; they
live in the database and are edited with 'reviewreply settings'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file, generating admin secrets",
	Long: `Write config.yaml from the effective configuration.

When no admin token or nonce secret is configured, random ones are
generated so the admin screens work straight away. Log in with the token
printed by 'reviewreply config show --reveal'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowReveal bool

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration, sources, and problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR and check it afterwards",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configShowCmd.Flags().BoolVar(&configShowReveal, "reveal", false, "Print secrets unmasked")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configKey describes one config key. The file layout, the env var name,
// and the comments written by 'config init' all derive from this table.
type configKey struct {
	Key    string
	Help   string
	Secret bool
}

var configKeys = []configKey{
	{Key: "state_dir", Help: "Directory for the PID file and serve log"},
	{Key: "db_path", Help: "SQLite database with products, reviews, and shop settings"},
	{Key: "port", Help: "Admin server port"},
	{Key: "completion.provider", Help: "openai, anthropic, or gemini"},
	{Key: "completion.base_url", Help: "Endpoint override, e.g. an OpenAI-compatible proxy; empty for the provider default"},
	{Key: "completion.timeout", Help: "Bound on one completion call"},
	{Key: "admin.token", Help: "Token exchanged for the login cookie; empty locks everyone out", Secret: true},
	{Key: "admin.nonce_secret", Help: "Signs anti-forgery tokens; empty means a random one per process", Secret: true},
	{Key: "admin.nonce_lifetime", Help: "How long an anti-forgery token stays valid"},
}

func (k configKey) envVar() string {
	return "RR_" + strings.ToUpper(strings.ReplaceAll(k.Key, ".", "_"))
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	values := make(map[string]string, len(configKeys))
	var generated []string
	for _, k := range configKeys {
		v := viper.GetString(k.Key)
		if k.Secret && v == "" {
			if v, err = newSecret(); err != nil {
				return err
			}
			generated = append(generated, k.Key)
		}
		values[k.Key] = v
	}

	data, err := renderConfigFile(values)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		for _, key := range generated {
			ui.DryRunMsg("Would generate %s", key)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// The file holds the admin token.
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	for _, key := range generated {
		ui.Info("Generated %s", key)
		viper.Set(key, values[key])
	}
	return nil
}

// renderConfigFile lays values out as nested YAML, one commented entry per
// config key, sections in first-seen order.
func renderConfigFile(values map[string]string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	sections := map[string]*yaml.Node{}

	for _, k := range configKeys {
		parent := root
		name := k.Key
		if section, leaf, ok := strings.Cut(k.Key, "."); ok {
			if sections[section] == nil {
				sections[section] = &yaml.Node{Kind: yaml.MappingNode}
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: section},
					sections[section])
			}
			parent, name = sections[section], leaf
		}

		valueNode := &yaml.Node{Kind: yaml.ScalarNode, Value: values[k.Key]}
		if k.Key == "port" {
			valueNode.Tag = "!!int"
		} else {
			valueNode.Style = yaml.DoubleQuotedStyle
		}
		parent.Content = append(parent.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name, HeadComment: k.Help},
			valueNode)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: "reviewreply configuration\nSee: reviewreply config show (for effective values and sources)",
		Content:     []*yaml.Node{root},
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func newSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}

	fileValues := readConfigFileValues(cfgPath)

	table := ui.Table([]string{"Key", "Value", "Source"})
	for _, k := range configKeys {
		val := viper.GetString(k.Key)
		if k.Secret && !configShowReveal {
			val = settings.MaskKey(val)
		}
		if err := table.Append([]string{k.Key, val, detectSource(k.Key, k.envVar(), fileValues)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, p := range configProblems() {
		ui.Warning("%s", p)
	}
	return nil
}

// configProblems lists settings that would stop 'serve' or 'generate'
// from working as expected.
func configProblems() []string {
	var problems []string

	if viper.GetString("admin.token") == "" {
		problems = append(problems, "admin.token is empty: nobody can log in (run 'reviewreply config init')")
	}
	provider := viper.GetString("completion.provider")
	if provider != "" && !slices.Contains([]string{llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderGemini}, provider) {
		problems = append(problems, fmt.Sprintf("completion.provider %q is not one of openai, anthropic, gemini", provider))
	}
	for _, key := range []string{"completion.timeout", "admin.nonce_lifetime"} {
		if viper.GetDuration(key) <= 0 {
			problems = append(problems, fmt.Sprintf("%s %q is not a positive duration", key, viper.GetString(key)))
		}
	}
	if port := viper.GetInt("port"); port <= 0 || port > 65535 {
		problems = append(problems, fmt.Sprintf("port %q is out of range", viper.GetString("port")))
	}
	return problems
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'reviewreply config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	if err := editCmd.Run(); err != nil {
		return err
	}

	return checkConfigFile(cfgPath)
}

// checkConfigFile reloads the edited file and reports keys nothing reads.
func checkConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config file %s is not valid YAML: %w", path, err)
	}

	present := make(map[string]bool)
	flattenKeys("", parsed, present)
	for key := range present {
		if !slices.ContainsFunc(configKeys, func(k configKey) bool { return k.Key == key }) {
			ui.Warning("Unknown config key %q", key)
		}
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	for _, p := range configProblems() {
		ui.Warning("%s", p)
	}
	ui.Success("Config file OK: %s", path)
	return nil
}
