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
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/chaptertran/internal/library"
	"github.com/valpere/chaptertran/internal/terminology"
)

var termsBookID string

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Manage a book's glossary",
	Long: `List, add, delete and import glossary entries for one book.

The glossary is sent with every chunk so names and places stay consistent
across chapters. Entries added by --extract-terms map to a "[term]"
placeholder until you give them a real rendering with "terms add".`,
}

var termsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBook(func(ctx context.Context, lib *library.Library, b *library.Book) error {
			if len(b.Terminology) == 0 {
				fmt.Println("Glossary is empty.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE TERM\tTARGET TERM")
			for _, e := range b.Terminology.Sorted() {
				fmt.Fprintf(w, "%s\t%s\n", e.Source, e.Target)
			}
			return w.Flush()
		})
	},
}

var termsAddCmd = &cobra.Command{
	Use:   "add <source-term> <target-term>",
	Short: "Add or update a glossary entry",
	Long: `Map a Chinese term to its English rendering.

Example:
  chaptertran terms add 李伟 "Li Wei" --book <id>`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBook(func(ctx context.Context, lib *library.Library, b *library.Book) error {
			scope := terminology.NewScope(b.Terminology)
			if err := scope.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := lib.SetTerminology(ctx, b.ID, scope.Snapshot()); err != nil {
				return fmt.Errorf("failed to add glossary entry: %w", err)
			}
			fmt.Printf("Added: %q → %q\n", args[0], args[1])
			return nil
		})
	},
}

var termsDeleteCmd = &cobra.Command{
	Use:   "delete <source-term>",
	Short: "Delete a glossary entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBook(func(ctx context.Context, lib *library.Library, b *library.Book) error {
			scope := terminology.NewScope(b.Terminology)
			if !scope.Delete(args[0]) {
				return fmt.Errorf("no glossary entry for %q", args[0])
			}
			if err := lib.SetTerminology(ctx, b.ID, scope.Snapshot()); err != nil {
				return fmt.Errorf("failed to delete glossary entry: %w", err)
			}
			fmt.Printf("Deleted glossary entry: %s\n", args[0])
			return nil
		})
	},
}

var termsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge glossary entries from a JSON object",
	Long: `Merge a JSON object of {"中文": "English"} pairs into the glossary.
Entries already in the glossary take the imported rendering.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read glossary file: %w", err)
		}
		var incoming terminology.Map
		if err := json.Unmarshal(data, &incoming); err != nil {
			return fmt.Errorf("failed to parse glossary file: %w", err)
		}

		return withBook(func(ctx context.Context, lib *library.Library, b *library.Book) error {
			scope := terminology.NewScope(b.Terminology)
			added := scope.Merge(incoming)
			if err := lib.SetTerminology(ctx, b.ID, scope.Snapshot()); err != nil {
				return fmt.Errorf("failed to import glossary: %w", err)
			}
			fmt.Printf("Imported %d new terms (%d total).\n", added, scope.Len())
			return nil
		})
	},
}

func withBook(fn func(context.Context, *library.Library, *library.Book) error) error {
	return withLibrary(func(ctx context.Context, lib *library.Library) error {
		b, err := lib.Get(ctx, termsBookID)
		if err != nil {
			return err
		}
		return fn(ctx, lib, b)
	})
}

func init() {
	rootCmd.AddCommand(termsCmd)

	termsCmd.PersistentFlags().StringVar(&termsBookID, "book", "", "Book ID (required)")
	termsCmd.MarkPersistentFlagRequired("book")

	termsCmd.AddCommand(termsListCmd)
	termsCmd.AddCommand(termsAddCmd)
	termsCmd.AddCommand(termsDeleteCmd)
	termsCmd.AddCommand(termsImportCmd)
}
