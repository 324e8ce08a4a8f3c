package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "omegatx [type] [address]",
	Short: "Omega transmitter CLI",
	Long: `A command line interface for reading Omega iServer environmental transmitters.

Supported types are ibthx (iBTHX-W, TCP commands) and ithx (iTHX-W, HTML
status page). Running "omegatx <type> <address>" is the same as
"omegatx read <type> <address>".`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return readCmd.RunE(cmd, args)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is omegatx.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Verbose debug output")
	rootCmd.PersistentFlags().Int("port", 0, "Transmitter port (default 2000 for ibthx, 80 for ithx)")
	rootCmd.PersistentFlags().Duration("timeout", 2*time.Second, "Timeout for connecting and for each read")
	rootCmd.PersistentFlags().Duration("overall-timeout", 0, "Deadline for the whole read cycle (default timeout x (commands+1))")

	cobra.CheckErr(bindFlags())
}

// bindFlags lets config file and environment values stand in for the
// persistent flags.
func bindFlags() error {
	return viper.BindPFlags(rootCmd.PersistentFlags())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("omegatx")
		viper.AddConfigPath("/etc/omegatx/")
		viper.AddConfigPath("$HOME/.omegatx/")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("omegatx")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()

	level := slog.LevelInfo
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	switch {
	case err == nil:
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
	case cfgFile != "":
		slog.Warn("failed to read config file", "file", cfgFile, "error", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
