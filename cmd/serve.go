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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/chaptertran/internal/server"
	"github.com/valpere/chaptertran/internal/store"
)

var serveLambda bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the translate endpoint over HTTP",
	Long: `Serve POST /api/translate, which translates one piece of text with the
configured backend and returns the cleaned result:

  request:  {"text": "...", "terminology": {"中文": "English"}}
  response: {"translation": "..."}

"contexts" is accepted in place of "terminology". Backend failures return
500 {"error": "Translation failed"}. GET /healthz reports liveness.

With --lambda the same handler runs as an AWS Lambda function instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Lambda has no writable working directory, so it runs without
		// translation memory.
		var db *store.Store
		if !serveLambda {
			var err error
			db, err = openStore()
			if err != nil {
				return err
			}
			defer db.Close()
		}

		tr, err := buildTranslator(cfg.Backend, db, nil)
		if err != nil {
			return err
		}

		srv := server.New(tr, server.WithLogger(logger), server.WithTimeout(cfg.Orchestrator.Timeout))
		if serveLambda {
			srv.StartLambda()
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address")
	serveCmd.Flags().BoolVar(&serveLambda, "lambda", false, "Run as an AWS Lambda handler")

	bindKey(serveCmd.Flags(), "addr", "server.addr")
}
