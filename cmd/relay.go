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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/chaptertran/internal/chunker"
	"github.com/valpere/chaptertran/internal/relay"
	"github.com/valpere/chaptertran/internal/tui"
)

const retryInterval = 3 * time.Second

var (
	relayInput string
	relayNoTUI bool
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Copy a chapter to the clipboard chunk by chunk",
	Long: `Open the destination in the browser, then copy each chunk to the
clipboard in turn, waiting --countdown seconds between chunks so you can
paste it.

If the clipboard cannot be written the relay stops at that chunk; press r
to retry. q or Esc closes immediately. After the last chunk, Enter opens
the destination again.

With --no-tui progress is logged instead and Ctrl+C stops the relay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(relayInput)
		if err != nil {
			return err
		}
		if cfg.Chunking.RelayLimit <= 0 {
			return fmt.Errorf("limit must be positive, got %d", cfg.Chunking.RelayLimit)
		}

		clip := relay.SystemClipboard{}
		if !clip.Available() {
			return fmt.Errorf("no clipboard available on this system")
		}

		chunks := chunker.Split(text, cfg.Chunking.RelayLimit)
		sugar := logger.Sugar()
		opts := []relay.Option{
			relay.WithURL(cfg.Relay.URL),
			relay.WithCountdown(cfg.Relay.Countdown),
			relay.WithLogger(logger),
		}
		var c *relay.Controller
		if relayNoTUI {
			opts = append(opts, relay.WithObserver(func(s relay.State) {
				switch s.Phase {
				case relay.Stalled:
					// Without a UI a blocked clipboard is retried until it works
					// or the relay is stopped.
					sugar.Warnw("clipboard blocked, retrying", "chunk", s.Index+1, "error", s.Err)
					time.AfterFunc(retryInterval, func() {
						if err := c.Retry(); err != nil && !errors.Is(err, relay.ErrNotStalled) {
							logger.Debug("retry failed", zap.Error(err))
						}
					})
				case relay.Counting:
					if s.SecondsLeft == c.Countdown() {
						sugar.Infow("chunk copied", "chunk", s.Index+1, "of", len(chunks), "next_in", s.SecondsLeft)
					}
				case relay.Complete:
					sugar.Infow("all chunks copied", "chunks", len(chunks))
				}
			}))
		}
		c = relay.New(chunks, clip, relay.SystemOpener{}, opts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := c.Start(); err != nil && !errors.Is(err, relay.ErrClipboard) {
			return err
		}

		if !relayNoTUI {
			return tui.RunRelay(ctx, c)
		}
		return relay.NewRunner(c).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)

	f := relayCmd.Flags()
	f.StringVarP(&relayInput, "input", "i", "", "Input file, - for stdin (required)")
	f.IntP("limit", "l", 0, "Maximum chunk size in characters")
	f.String("url", "", "Destination opened before relaying")
	f.Int("countdown", 0, "Seconds between chunks")
	f.BoolVar(&relayNoTUI, "no-tui", false, "Log progress instead of showing the relay screen")

	bindKey(f, "limit", "chunking.relay_limit")
	bindKey(f, "url", "relay.url")
	bindKey(f, "countdown", "relay.countdown")

	relayCmd.MarkFlagRequired("input")
}
