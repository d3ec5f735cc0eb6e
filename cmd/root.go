/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/romflash/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "romflash",
	Short: "Flash firmware onto ESP chips over a serial port",
	Long: `romflash puts an Espressif chip into its ROM bootloader over DTR/RTS,
runs the bootloader handshake through a protocol module and writes an
application image at 0x10000.

Chips with native USB (ESP32-S2, ESP32-S3) drop their serial port when they
reset into the bootloader. romflash waits for the port to come back and
retries the handshake on it.

Examples:
  romflash list --table
  romflash connect --port /dev/ttyACM0
  romflash flash build/app.bin`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/romflash/config.yaml)")
	flags.StringP("port", "p", "", "serial port to use instead of choosing one")
	flags.StringP("module", "m", "", "protocol module: registered name or plugin path")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	flags.Bool("plain", false, "print plain status lines instead of the interactive view")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("port", flags.Lookup("port"))
	_ = viper.BindPFlag("module", flags.Lookup("module"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("logging.file", flags.Lookup("log-file"))
	_ = viper.BindPFlag("metrics.file", flags.Lookup("metrics-file"))
	_ = viper.BindPFlag("ui.plain", flags.Lookup("plain"))
}

func initConfig() {
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ROMFLASH")
	// ROMFLASH_LOGGING_LEVEL for logging.level
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing config file is fine
	_ = viper.ReadInConfig()
}
