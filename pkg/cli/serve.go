package cli

import (
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/funvibe/diffsmith/internal/oracle"
)

func newServeCmd(g *globals) *cobra.Command {
	var (
		ef     execFlags
		listen string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a pool of local executor workers over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := ef.pool(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer pool.Close()
			srv, err := oracle.NewServer(pool)
			if err != nil {
				return err
			}
			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return err
			}

			done := make(chan error, 1)
			go func() { done <- srv.Serve(lis) }()
			g.logger.Info("serving", slog.String("addr", lis.Addr().String()), slog.Int("workers", ef.workers))

			select {
			case err := <-done:
				return err
			case <-cmd.Context().Done():
				srv.Stop()
				<-done
				st := pool.Stats()
				g.logger.Info("stopped", slog.Int("started", st.Started), slog.Int("reused", st.Reused),
					slog.Int("retired", st.Retired), slog.Int("discarded", st.Discarded))
				return nil
			}
		},
	}
	ef.bindOracle(cmd)
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:7411", "address to listen on")
	return cmd
}
