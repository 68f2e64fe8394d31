package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/human-compiler/internal/api"
	"github.com/kalambet/human-compiler/internal/plugin"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the profile HTTP API (foreground)",
	Long: `Serve the profile HTTP API on 127.0.0.1.

When server.token (HUMANC_SERVER_TOKEN) is set, every route except /health
requires "Authorization: Bearer <token>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		if port == 0 {
			port = a.cfg.Server.Port
		}
		deps, err := a.deps()
		if err != nil {
			return err
		}
		if deps.Token == "" {
			printWarning("server.token is not set; the API is unauthenticated")
		}

		addr := fmt.Sprintf("127.0.0.1:%d", port)
		return serveHTTP(cmd.Context(), addr, api.NewHandler(deps))
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default: server.port)")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the interview tools over MCP (stdio)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		deps, err := a.deps()
		if err != nil {
			return err
		}
		slog.Info("MCP server started (stdio transport)", "root", a.store.Root())
		stdio := server.NewStdioServer(api.NewMCPServer(deps, version))
		if err := stdio.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil
	},
}

func (a *app) deps() (api.Deps, error) {
	gen, err := plugin.NewGenerator(nil)
	if err != nil {
		return api.Deps{}, err
	}
	return api.Deps{
		Machine:   a.machine,
		Recorder:  a.recorder,
		Journal:   a.journal,
		Generator: gen,
		Token:     a.cfg.Server.Token,
	}, nil
}

// serveHTTP runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		printStep("humanc listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
