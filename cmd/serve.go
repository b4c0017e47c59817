/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/blacktop/postkit/internal/config"
	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/publish/linkedin"
	"github.com/blacktop/postkit/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var listenAddr string

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OAuth and publishing backend for the web front end",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default from config, :4000)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Server.Addr = listenAddr
	}
	if !logutil.Verbose() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, writer, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if writer == nil {
		logutil.Infof("credential store %q is read-only; OAuth tokens will not be saved", cfg.Store.Driver)
	}

	exchanger := buildExchanger(cfg)
	logutil.Infof("oauth configured for %v", exchanger.Platforms())

	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, server.Deps{
		Orchestrator: newOrchestrator(cfg, store),
		OAuth:        exchanger,
		LinkedIn:     linkedin.New(linkedin.Config{BaseURL: cfg.APIs.LinkedInBaseURL, HTTPClient: newHTTPClient(cfg)}),
		Store:        writer,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
