package root

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lifequest/internal/config"
	"lifequest/internal/cron"
	"lifequest/internal/server"
	"lifequest/internal/tui"
	"lifequest/internal/ui"
)

func newBoardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Interactive quest board (TUI)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return tui.RunBoard(ctx, svc)
		},
	}
}

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API for collaborator integrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Listen
			}

			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			log := newLogger()
			srv := &http.Server{
				Addr:    listen,
				Handler: server.New(svc, log),
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconBolt, "Listening on "+listen))

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				return srv.Shutdown(context.Background())
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the day-boundary scheduler in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, cleanup, err := openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			sched := cron.NewScheduler(cron.Config{
				Service: svc,
				Logger:  newLogger(),
				Spec:    spec,
			})
			if err := sched.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconLoop, "Watching for day boundaries (ctrl-c to stop)"))

			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "cron spec for rollover (default midnight)")
	return cmd
}
