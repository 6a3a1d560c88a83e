package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OliverSieweke/supermarket-customer-behavior/am"
	"github.com/OliverSieweke/supermarket-customer-behavior/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage scb configuration",
	Long: sym.AM + ` am — Manage scb configuration ("I am")

Display and manage scb configuration settings.

Configuration sources (in order of precedence):
1. Environment variables (SCB_* prefix)
2. Project config (./scb.toml, searched upward)
3. User config (~/.scb/config.toml)
4. System config (/etc/scb/config.toml)
5. Default values

Examples:
  scb am show                     # Show current configuration
  scb am show --format json       # Show configuration in JSON format
  scb am get database.path        # Get a specific config value
  scb am set data.dir ./data      # Persist a config value
  scb am where                    # Show the configuration cascade`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the merged scb configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, ingest.workers)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Long: `Write a configuration value into the active config file using dot notation.

The value lands in the highest-precedence config file that exists (project
scb.toml, else the user config). Rotating backups (.back1 .. .back3) are kept.

Examples:
  scb am set data.dir ./data
  scb am set server.port 8741
  scb am set sim.customers 2000`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amWhereCmd = &cobra.Command{
	Use:     "where",
	Aliases: []string{"path"},
	Short:   "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which files exist and which are missing.`,
	RunE: runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# scb configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# scb configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	if _, err := am.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value := am.GetViper().Get(args[0])
	if value == nil {
		return fmt.Errorf("unknown configuration key: %s", args[0])
	}
	fmt.Println(value)
	return nil
}

// parseValue types a CLI argument so numbers and booleans land as such in the
// TOML file rather than as quoted strings.
func parseValue(raw string) interface{} {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func runAmSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], parseValue(args[1])

	if err := am.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	// Reload so a bad value is reported immediately rather than on next run
	if _, err := am.Load(); err != nil {
		return fmt.Errorf("config invalid after setting %s: %w", key, err)
	}

	fmt.Printf("Set %s = %v (%s)\n", key, value, am.ActiveConfigPath())
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	sources := []struct {
		label string
		path  string
	}{
		{"system", "/etc/scb/config.toml"},
		{"user", am.UserConfigPath()},
	}

	fmt.Println("Configuration cascade (lowest to highest precedence):")
	for _, src := range sources {
		status := "missing"
		if src.path != "" {
			if _, err := os.Stat(src.path); err == nil {
				status = "found"
			}
		}
		fmt.Printf("  %-8s %-40s [%s]\n", src.label, src.path, status)
	}
	fmt.Println("  env      SCB_* environment variables        [highest]")
	fmt.Printf("\nActive config file (where 'scb am set' writes): %s\n", am.ActiveConfigPath())
	return nil
}
