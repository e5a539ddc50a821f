// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the files2md CLI, which exports the
// stored attachments of a Zotero library as Markdown files.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/files2md/internal/logging"
	"github.com/pdiddy/files2md/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	secretsDir = ".secrets/"
	dotenvFile = ".env"
	envPrefix  = "ZOTERO"
)

// logger is built from --log-level before any subcommand runs.
var logger = slog.Default()

// credential ties a viper key to the sources that can supply it below the
// process environment.
type credential struct {
	key    string // viper key, also the config file key
	flag   string
	env    string // variable name in the environment and in .env
	secret string // file name under .secrets/
}

var credentials = []credential{
	{key: "api_key", flag: "api-key", env: envPrefix + "_API_KEY", secret: secrets.KeyAPIKey},
	{key: "library_id", flag: "library-id", env: envPrefix + "_LIBRARY_ID", secret: secrets.KeyLibraryID},
	{key: "library_type", flag: "library-type", env: envPrefix + "_LIBRARY_TYPE", secret: secrets.KeyLibraryType},
}

// rootCmd is the base command for the files2md CLI.
var rootCmd = &cobra.Command{
	Use:   "files2md",
	Short: "Export Zotero attachments as Markdown",
	Long: `files2md walks the attachments of a Zotero library, downloads the stored
ones (imported files and web snapshots) and converts each to a Markdown file
under an output directory, grouped by parent item.

Credentials come from flags, ZOTERO_* environment variables, a .env file,
key files in .secrets/ or the config file, in that order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		l, err := logging.New(os.Stderr, level, format)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)

		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		env, err := secrets.LoadDotenv(dotenvFile)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		applyFallbacks(viper.GetViper(), cmd.Flags(), env, s)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: files2md.yaml in . or ~/.config/files2md)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("log-format", logging.FormatText, "log format: text or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("files2md")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "files2md"))
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// applyFallbacks fills credentials from .env and .secrets/ when neither a
// flag nor the environment sets them. Either source outranks the config
// file.
func applyFallbacks(v *viper.Viper, flags *pflag.FlagSet, dotenv, keyFiles map[string]string) {
	for _, c := range credentials {
		if f := flags.Lookup(c.flag); f != nil && f.Changed {
			continue
		}
		if _, set := os.LookupEnv(c.env); set {
			continue
		}
		if val := dotenv[c.env]; val != "" {
			v.Set(c.key, val)
			continue
		}
		if val := keyFiles[c.secret]; val != "" {
			v.Set(c.key, val)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
