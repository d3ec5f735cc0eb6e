/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/allbin/romflash/internal/config"
	"github.com/allbin/romflash/protocol"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View romflash configuration",
	Long: `View romflash configuration.

Configuration is read from $XDG_CONFIG_HOME/romflash/config.yaml (or
~/.config/romflash/config.yaml), then ROMFLASH_* environment variables,
then command-line flags. For example ROMFLASH_LOGGING_LEVEL=debug sets
logging.level.

Without arguments, displays the effective configuration.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration as YAML",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Print(string(out))

	if registered := protocol.Registered(); len(registered) > 0 {
		fmt.Printf("\n# registered protocol modules: %v\n", registered)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Println(used)
		return nil
	}
	fmt.Println(config.ConfigFile())
	return nil
}
