// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package main is the entry point for the fileconv CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicholasgasior/fileconv"
	"github.com/nicholasgasior/fileconv/internal/config"
	xlog "github.com/nicholasgasior/fileconv/internal/log"
)

// version is set at build time via ldflags.
var version = "dev"

// settings holds file, environment and default values. Commands bind their
// flags into it before decoding.
var settings *viper.Viper

var rootCmd = &cobra.Command{
	Use:   "fileconv",
	Short: "Convert files between formats",
	Long: `fileconv detects the type of a file from its content and converts it to
another format. Conversions are advertised per media type; "fileconv formats"
lists what a file can become.

Settings come from flags, FILECONV_* environment variables and an optional
YAML config file (./fileconv.yaml or ~/.config/fileconv/config.yaml).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.New(configFile(cmd))
		if err != nil {
			return err
		}
		settings = v

		cfg, err := loadConfig(cmd, map[string]string{
			"log.level":  "log-level",
			"log.pretty": "log-pretty",
		})
		if err != nil {
			return err
		}
		xlog.Configure(xlog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
		if used := settings.ConfigFileUsed(); used != "" {
			l := xlog.WithComponent("cli")
			l.Debug().Str("path", used).Msg("using config file")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fileconv.yaml or ~/.config/fileconv/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "human-readable log output")
}

// configFile returns the --config value, or the first default location
// that exists.
func configFile(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	candidates := []string{"fileconv.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "fileconv", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// loadConfig binds the named flags of cmd to config keys and decodes the
// merged settings.
func loadConfig(cmd *cobra.Command, flags map[string]string) (config.Config, error) {
	for key, name := range flags {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := settings.BindPFlag(key, f); err != nil {
			return config.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return config.FromViper(settings)
}

// newEngine builds an Engine from cfg.
func newEngine(cfg config.Config) (*fileconv.Engine, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	return fileconv.New(opts...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
