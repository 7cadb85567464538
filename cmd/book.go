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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/chaptertran/internal/library"
	"github.com/valpere/chaptertran/internal/markdown"
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage books and their chapters",
	Long: `Create, list, inspect, rename and delete books, and move them in and
out of JSON exports. Exports from older versions, including the browser
app's "contexts" glossary field, import as-is.`,
}

var bookCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create an empty book",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, lib *library.Library) error {
			b, err := lib.Create(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Printf("Created book %s: %s\n", b.ID, b.Title)
			return nil
		})
	},
}

var bookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List books",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, lib *library.Library) error {
			books, err := lib.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list books: %w", err)
			}
			if len(books) == 0 {
				fmt.Println("No books.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCHAPTERS\tTERMS\tUPDATED")
			for _, b := range books {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					b.ID, truncate(b.Title, 40), len(b.Chapters), len(b.Terminology),
					b.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		})
	},
}

var bookShowChapter int

var bookShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a book's chapters, or one chapter's text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, lib *library.Library) error {
			b, err := lib.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if bookShowChapter > 0 {
				if bookShowChapter > len(b.Chapters) {
					return fmt.Errorf("book has %d chapters", len(b.Chapters))
				}
				c := b.Chapters[bookShowChapter-1]
				fmt.Printf("%s\n\n%s\n", c.Title, c.TranslatedText)
				return nil
			}

			fmt.Printf("%s (%s)\n", b.Title, b.ID)
			fmt.Printf("Created %s, updated %s, %d glossary terms\n\n",
				b.CreatedAt.Local().Format("2006-01-02 15:04"),
				b.UpdatedAt.Local().Format("2006-01-02 15:04"),
				len(b.Terminology))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tTITLE\tCHARS\tADDED")
			for i, c := range b.Chapters {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\n",
					i+1, truncate(c.Title, 50), len([]rune(c.TranslatedText)),
					c.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		})
	},
}

var bookRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a book",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, lib *library.Library) error {
			title := strings.Join(args[1:], " ")
			if err := lib.Rename(ctx, args[0], title); err != nil {
				return err
			}
			fmt.Printf("Renamed book %s to %s\n", args[0], strings.TrimSpace(title))
			return nil
		})
	},
}

var bookDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a book and its chapters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, lib *library.Library) error {
			if err := lib.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted book: %s\n", args[0])
			return nil
		})
	},
}

var (
	bookExportOutput string
	bookExportFormat string
)

var bookExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export the library as JSON, or one book as Markdown, HTML or text",
	Long: `Without an ID, write every book as a JSON array that "book import"
reads back. With an ID, --format selects json (that book only), md, html
or txt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(func(ctx context.Context, lib *library.Library) error {
			if len(args) == 0 {
				if bookExportFormat != "json" {
					return fmt.Errorf("format %q needs a book ID", bookExportFormat)
				}
				var sb strings.Builder
				if err := lib.ExportJSON(ctx, &sb); err != nil {
					return fmt.Errorf("failed to export: %w", err)
				}
				return writeOutput(bookExportOutput, sb.String())
			}

			b, err := lib.Get(ctx, args[0])
			if err != nil {
				return err
			}
			out, err := renderBook(ctx, lib, b, bookExportFormat)
			if err != nil {
				return err
			}
			return writeOutput(bookExportOutput, out)
		})
	},
}

func renderBook(ctx context.Context, lib *library.Library, b *library.Book, format string) (string, error) {
	switch format {
	case "md", "markdown":
		return string(markdown.FromBook(b)), nil
	case "html":
		return markdown.Page(b)
	case "txt", "text":
		return markdown.ToPlainText(markdown.FromBook(b)), nil
	case "json":
		var sb strings.Builder
		if err := lib.ExportBookJSON(ctx, b.ID, &sb); err != nil {
			return "", err
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("unknown format %q (json, md, html, txt)", format)
}

var bookImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import books from a JSON export",
	Long: `Import a JSON array of books, or a single book object. Books whose ID
already exists are replaced; others are appended.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()

		return withLibrary(func(ctx context.Context, lib *library.Library) error {
			n, err := lib.ImportJSON(ctx, f)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d books.\n", n)
			return nil
		})
	},
}

// withLibrary opens the library for the duration of fn.
func withLibrary(fn func(context.Context, *library.Library) error) error {
	db, lib, err := openLibrary()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), lib)
}

func init() {
	rootCmd.AddCommand(bookCmd)

	bookShowCmd.Flags().IntVarP(&bookShowChapter, "chapter", "c", 0, "Print the translated text of chapter N")

	bookExportCmd.Flags().StringVarP(&bookExportOutput, "output", "o", "", "Output file (default stdout)")
	bookExportCmd.Flags().StringVarP(&bookExportFormat, "format", "f", "json", "json, md, html or txt")

	bookCmd.AddCommand(bookCreateCmd)
	bookCmd.AddCommand(bookListCmd)
	bookCmd.AddCommand(bookShowCmd)
	bookCmd.AddCommand(bookRenameCmd)
	bookCmd.AddCommand(bookDeleteCmd)
	bookCmd.AddCommand(bookExportCmd)
	bookCmd.AddCommand(bookImportCmd)
}
