package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaguanLabs/pagetl/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve page translation over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			svc, err := newService(cfg, logger)
			if err != nil {
				return err
			}
			defer svc.DestroyAll()

			publisher, closePublisher, err := newEventPublisher(cfg, logger)
			if err != nil {
				return err
			}
			defer closePublisher()

			gin.SetMode(gin.ReleaseMode)
			opts := []server.Option{
				server.WithDocumentOptions(cfg.DocumentOptions()...),
				server.WithTargetLanguage(cfg.TargetLanguage),
				server.WithStreaming(cfg.Streaming),
				server.WithLogger(logger),
			}
			if publisher != nil {
				opts = append(opts, server.WithObserver(publisher))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", cyan(cfg.Server.Addr))
			return server.New(svc, opts...).ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: :8080)")
	return cmd
}
