package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/geo-toolkit/internal/server"
	"github.com/jonathan/geo-toolkit/internal/server/ratelimit"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start an HTTP server that exposes the audit, compare and fact-check pipelines, with SSE streaming of every state change.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT, default 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, err := newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	auditor, err := newAuditor(ctx, client)
	if err != nil {
		return err
	}
	comparer, err := newComparer(client)
	if err != nil {
		return err
	}

	port := cfg.Port
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(server.Config{
		Port:        port,
		AccessToken: cfg.AccessToken,
		RateLimit:   ratelimit.NewConfig(cfg.RateLimitSettings()),
		Logger:      logger.Named("server"),
	}, server.Pipelines{
		Auditor:  auditor,
		Comparer: comparer,
		Checker:  newChecker(client),
	})

	return srv.Start(ctx)
}
