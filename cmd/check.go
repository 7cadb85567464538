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
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/chaptertran/internal/translator"
)

var backendNames = []string{"ollama", "openrouter", "openai", "google", "http"}

var checkCmd = &cobra.Command{
	Use:   "check [backend...]",
	Short: "Check that translation backends are reachable",
	Long: `Probe each named backend (all of them when none are given) and report
whether it is configured and reachable. Exits with an error if any probe
fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if len(names) == 0 {
			names = backendNames
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		failed := 0
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BACKEND\tSTATUS\tDETAIL")
		for _, name := range names {
			status, detail := "ok", ""
			if err := probe(cmd.Context(), name, timeout); err != nil {
				status, detail = "unavailable", err.Error()
				failed++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, status, detail)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d backends unavailable", failed, len(names))
		}
		return nil
	},
}

func probe(ctx context.Context, name string, timeout time.Duration) error {
	svcCfg, err := cfg.Service(name)
	if err != nil {
		return err
	}
	svc, err := translator.New(name, svcCfg)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return svc.IsAvailable(ctx)
}

func init() {
	checkCmd.Flags().Duration("timeout", 10*time.Second, "Per-backend probe timeout")
	rootCmd.AddCommand(checkCmd)
}
