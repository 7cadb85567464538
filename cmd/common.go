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
	"io"
	"os"
	"path/filepath"

	"github.com/valpere/chaptertran/internal/library"
	"github.com/valpere/chaptertran/internal/orchestrator"
	"github.com/valpere/chaptertran/internal/refiner"
	"github.com/valpere/chaptertran/internal/store"
	"github.com/valpere/chaptertran/internal/translator"
)

// openStore opens the database named by the db setting, creating its
// directory if needed.
func openStore() (*store.Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openLibrary opens the store and the books kept in it. Closing the
// returned store closes both.
func openLibrary() (*store.Store, *library.Library, error) {
	db, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	lib, err := library.New(db.DB())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, lib, nil
}

// buildTranslator constructs the configured backend, followed by the
// refinement pass when enabled and fronted by translation memory when db is
// set. A non-nil check keeps rejected output out of translation memory.
func buildTranslator(backend string, db *store.Store, check orchestrator.Validator) (orchestrator.Translator, error) {
	svcCfg, err := cfg.Service(backend)
	if err != nil {
		return nil, err
	}
	svc, err := translator.New(backend, svcCfg)
	if err != nil {
		return nil, err
	}
	tr := translator.Adapter(svc)
	service := svc.Name()
	cacheOpts := []store.CacheOption{
		store.WithFuzzyThreshold(cfg.Cache.FuzzyThreshold),
		store.WithCacheLogger(logger),
	}
	if check != nil {
		cacheOpts = append(cacheOpts, store.WithValidator(check))
	}
	if cfg.Refiner.Enabled {
		r := refiner.NewOllamaRefiner(cfg.Refiner.Model, cfg.Refiner.BaseURL, cfg.Refiner.Timeout)
		tr = refiner.Translator(tr, r, logger)
		service += "+refine"
		cacheOpts = append(cacheOpts, store.WithVariant("refine"))
	}
	if db == nil || !cfg.Cache.Enabled {
		return tr, nil
	}
	return store.NewCachedTranslator(tr, db, service, cacheOpts...), nil
}

// readInput reads path, or stdin when path is "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}

// writeOutput writes text to path, or stdout when path is "" or "-".
func writeOutput(path, text string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(os.Stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
