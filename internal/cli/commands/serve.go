package commands

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grimoire-wiki/grimoire/internal/web/api"
	"github.com/grimoire-wiki/grimoire/internal/web/server"
)

type serveOptions struct {
	port            int
	noMigrate       bool
	shutdownTimeout time.Duration
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve the entity API over HTTP. Pending schema migrations are applied
first unless --no-migrate is given. SIGINT or SIGTERM drains in-flight
requests before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), global, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&opts.noMigrate, "no-migrate", false, "do not apply pending migrations on start")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 30*time.Second, "how long to wait for in-flight requests")

	return cmd
}

func runServe(ctx context.Context, global *globalOptions, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(global)
	if err != nil {
		return err
	}

	if !opts.noMigrate {
		if _, err := a.ensureSchema(ctx); err != nil {
			a.Close()
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	addr := a.cfg.Server.Address()
	if opts.port > 0 {
		addr = net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(opts.port))
	}

	handler := api.NewHandler(a.engine, a.logger).Routes(a.cfg.Server.APIPrefix)
	srv, err := server.New(addr, handler, server.WithDatabase(a.db, server.Pool{
		MaxOpen:     a.cfg.Database.MaxOpenConns,
		MaxIdle:     10,
		MaxLifetime: time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}))
	if err != nil {
		a.Close()
		return err
	}

	gs := server.NewGracefulShutdown(srv, opts.shutdownTimeout, a.logger)
	gs.RegisterHook(func(context.Context) error {
		return a.Close()
	})

	a.logger.Info("starting grimoire",
		zap.String("version", Version),
		zap.String("driver", a.cfg.Database.Driver),
		zap.String("api_prefix", a.cfg.Server.APIPrefix))
	return gs.Run(ctx)
}
