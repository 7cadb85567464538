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
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkoukk/tiktoken-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/chaptertran/internal/chunker"
)

var (
	splitInput string
	splitJSON  bool
)

type chunkInfo struct {
	Index     int     `json:"index"`
	Runes     int     `json:"runes"`
	Percent   float64 `json:"percent"`
	Tokens    int     `json:"tokens,omitempty"`
	Oversized bool    `json:"oversized"`
	Text      string  `json:"text"`
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Show how a chapter would be chunked",
	Long: `Split a chapter exactly as translate and relay would and print one line
per chunk: size in characters, share of the limit and an estimated token
count (cl100k_base). Chunks over the limit, which happens only for single
sentences longer than the limit, are marked with "!".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(splitInput)
		if err != nil {
			return err
		}
		limit := cfg.Chunking.Limit
		if limit <= 0 {
			return fmt.Errorf("limit must be positive, got %d", limit)
		}
		chunks := chunker.Split(text, limit)

		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warn("token estimates unavailable", zap.Error(err))
			enc = nil
		}

		over := map[int]bool{}
		for _, i := range chunker.Oversized(chunks, limit) {
			over[i] = true
		}

		infos := make([]chunkInfo, len(chunks))
		for i, c := range chunks {
			n := chunker.Len(c)
			infos[i] = chunkInfo{
				Index:     i + 1,
				Runes:     n,
				Percent:   100 * float64(n) / float64(limit),
				Oversized: over[i],
				Text:      c,
			}
			if enc != nil {
				infos[i].Tokens = len(enc.Encode(c, nil, nil))
			}
		}

		if splitJSON {
			out := json.NewEncoder(os.Stdout)
			out.SetIndent("", "  ")
			return out.Encode(infos)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\t#\tCHARS\t% LIMIT\tTOKENS\tSTART")
		for _, ci := range infos {
			mark := ""
			if ci.Oversized {
				mark = "!"
			}
			first, _, _ := strings.Cut(ci.Text, "\n")
			fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\t%d\t%s\n",
				mark, ci.Index, ci.Runes, ci.Percent, ci.Tokens, truncate(first, 30))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d chunks, limit %d\n", len(infos), limit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)

	f := splitCmd.Flags()
	f.StringVarP(&splitInput, "input", "i", "", "Input file, - for stdin (required)")
	f.IntP("limit", "l", 0, "Maximum chunk size in characters")
	f.BoolVar(&splitJSON, "json", false, "Print chunks as JSON")

	bindKey(f, "limit", "chunking.limit")

	splitCmd.MarkFlagRequired("input")
}
