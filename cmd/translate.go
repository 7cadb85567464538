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
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/chaptertran/internal/detector"
	"github.com/valpere/chaptertran/internal/library"
	"github.com/valpere/chaptertran/internal/orchestrator"
	"github.com/valpere/chaptertran/internal/store"
	"github.com/valpere/chaptertran/internal/terminology"
	"github.com/valpere/chaptertran/internal/validator"
)

var (
	inputFile    string
	outputFile   string
	bookID       string
	chapterTitle string
	extractTerms bool
	validateOut  bool
	noCache      bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a chapter chunk by chunk",
	Long: `Split a Chinese chapter into chunks and translate them in order with
the configured backend.

A chunk that still fails after all attempts is replaced by a placeholder
and the run continues. Interrupting (Ctrl+C) abandons the run and writes
nothing.

With --book the book's glossary is sent with every chunk and the result is
saved as the book's next chapter. --extract-terms harvests candidate names
from each translated chunk into the glossary; review them with
"chaptertran terms list".

Backends: ollama, openrouter, openai, google, http`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile && outputFile != "-" {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		text, err := readInput(inputFile)
		if err != nil {
			return err
		}

		if !detector.New().IsChinese(text) {
			logger.Warn("input does not look like Chinese", zap.String("file", inputFile))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var db *store.Store
		var lib *library.Library
		if bookID != "" || !noCache {
			db, lib, err = openLibrary()
			if err != nil {
				return err
			}
			defer db.Close()
		}

		terms := terminology.Map{}
		fallback := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
		var book *library.Book
		if bookID != "" {
			book, err = lib.Get(ctx, bookID)
			if err != nil {
				return err
			}
			terms = book.Terminology
			fallback = fmt.Sprintf("Chapter %d", len(book.Chapters)+1)
		}

		cacheDB := db
		if noCache {
			cacheDB = nil
		}
		var check orchestrator.Validator
		if validateOut {
			check = validator.NewEnglish()
		}
		tr, err := buildTranslator(cfg.Backend, cacheDB, check)
		if err != nil {
			return err
		}

		sugar := logger.Sugar()
		opts := []orchestrator.Option{
			orchestrator.WithLogger(logger),
			orchestrator.WithTermExtraction(extractTerms),
			orchestrator.WithProgress(func(c orchestrator.Chunk) {
				switch c.Status {
				case orchestrator.Done:
					sugar.Infow("chunk translated", "chunk", c.Index+1, "attempts", c.Attempts)
				case orchestrator.Failed:
					sugar.Warnw("chunk failed", "chunk", c.Index+1, "attempts", c.Attempts, "error", c.Err)
				case orchestrator.InProgress:
					sugar.Debugw("translating", "chunk", c.Index+1, "runes", len([]rune(c.OriginalText)))
				}
			}),
		}
		if check != nil {
			opts = append(opts, orchestrator.WithValidator(check))
		}

		orch := orchestrator.New(tr, orchestrator.Config{
			Timeout:     cfg.Orchestrator.Timeout,
			MaxAttempts: cfg.Orchestrator.MaxAttempts,
			RetryDelay:  cfg.Orchestrator.RetryDelay,
		}, opts...)

		sugar.Infow("starting translation", "backend", cfg.Backend, "limit", cfg.Chunking.Limit, "terms", len(terms))
		run, err := orch.Run(ctx, orchestrator.Input{
			Text:          text,
			Terminology:   terminology.NewScope(terms),
			Limit:         cfg.Chunking.Limit,
			FallbackTitle: fallback,
		})
		if errors.Is(err, orchestrator.ErrAbandoned) {
			sugar.Warnw("translation abandoned", "done", run.Count(orchestrator.Done), "of", len(run.Chunks))
			return err
		}
		if err != nil {
			return err
		}

		if err := writeOutput(outputFile, run.Text+"\n"); err != nil {
			return err
		}

		title := chapterTitle
		if title == "" {
			title = run.Title
		}
		if book != nil {
			ch, err := lib.AddChapter(ctx, book.ID, library.Chapter{
				Title:          title,
				OriginalText:   text,
				TranslatedText: run.Text,
			})
			if err != nil {
				return fmt.Errorf("failed to save chapter: %w", err)
			}
			if extractTerms && len(run.Terminology) > len(terms) {
				if err := lib.SetTerminology(ctx, book.ID, run.Terminology); err != nil {
					return fmt.Errorf("failed to save terminology: %w", err)
				}
				sugar.Infow("glossary updated", "terms", len(run.Terminology), "new", len(run.Terminology)-len(terms))
			}
			sugar.Infow("chapter saved", "book", book.Title, "chapter", ch.Title)
		}

		failed := run.Count(orchestrator.Failed)
		fmt.Fprintf(os.Stderr, "Translated %q: %d/%d chunks", title, run.Count(orchestrator.Done), len(run.Chunks))
		if failed > 0 {
			fmt.Fprintf(os.Stderr, " (%d failed)", failed)
		}
		fmt.Fprintf(os.Stderr, " in %s\n", run.Finished.Sub(run.Started).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	f := translateCmd.Flags()
	f.StringVarP(&inputFile, "input", "i", "", "Input file to translate, - for stdin (required)")
	f.StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
	f.StringVar(&bookID, "book", "", "Book ID to use the glossary of and save the chapter to")
	f.StringVar(&chapterTitle, "title", "", "Chapter title (default derived from the translation)")
	f.IntP("limit", "l", 0, "Maximum chunk size in characters")
	f.String("backend", "", "Translation backend")
	f.Int("max-attempts", 0, "Attempts per chunk including the first")
	f.BoolVar(&extractTerms, "extract-terms", false, "Add candidate names from each chunk to the glossary")
	f.BoolVar(&validateOut, "validate", false, "Reject chunk translations that are not English")
	f.BoolVar(&noCache, "no-cache", false, "Bypass translation memory")
	f.Bool("refine", false, "Polish each chunk with a second LLM editing pass")

	bindKey(f, "limit", "chunking.limit")
	bindKey(f, "backend", "backend")
	bindKey(f, "max-attempts", "orchestrator.max_attempts")
	bindKey(f, "refine", "refiner.enabled")

	translateCmd.MarkFlagRequired("input")
}
