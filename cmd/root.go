/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/valpere/chaptertran/internal/config"
	"github.com/valpere/chaptertran/internal/logging"
)

var version = "0.1.0"

// viperKey is the flag annotation naming the config key a flag overrides.
const viperKey = "viper-key"

var (
	cfgFile string
	envFile string

	v      = config.New()
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "chaptertran",
	Short: "Chinese to English chapter translator",
	Long: `Translate Chinese web-novel chapters into English, one chunk at a time.

Chapters are split on paragraph and sentence boundaries, sent to an LLM
backend in order, cleaned of reasoning and chatter, and saved to a book
together with the book's glossary. The relay command instead copies the
chunks to the clipboard on a timer for pasting into an external tool.

Use "chaptertran translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		if err := bindFlags(cmd); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bindKey marks flag name on fs as an override for a config key. Binding is
// deferred until the command actually runs, so several commands can map
// their own flags onto the same key.
func bindKey(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, viperKey, []string{key}); err != nil {
		panic(err)
	}
}

func bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys, ok := f.Annotations[viperKey]; ok && err == nil {
			err = v.BindPFlag(keys[0], f)
		}
	})
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./chaptertran.yaml or ~/.config/chaptertran/chaptertran.yaml)")
	pf.StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	pf.String("db", "", "Database path")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (console, json)")

	bindKey(pf, "db", "db")
	bindKey(pf, "log-level", "log.level")
	bindKey(pf, "log-format", "log.format")
}
