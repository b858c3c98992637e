package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/visualgate/internal/pixeldiff"
	"github.com/kamilpajak/visualgate/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port      int
		bind      string
		noBrowser bool
		origins   []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the comparison API server",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Server.Port
			}
			allowed := ServerOrigins(bind, port, slices.Concat(a.cfg.Server.AllowedOrigins, origins))
			return a.serve(cmd.Context(), net.JoinHostPort(bind, strconv.Itoa(port)), allowed, !noBrowser)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on (default from config)")
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1", "Address to bind")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Disable live comparisons")
	cmd.Flags().StringArrayVar(&origins, "allow-origin", nil, "Extra browser origin allowed to call the API (repeatable)")
	return cmd
}

// ServerOrigins returns the browser origins the API accepts: the server's
// own loopback origins plus extra. Other origins are rejected.
func ServerOrigins(bind string, port int, extra []string) []string {
	hosts := []string{"127.0.0.1", "localhost"}
	if bind != "" && bind != "127.0.0.1" && bind != "localhost" && bind != "0.0.0.0" && bind != "::" {
		hosts = append(hosts, bind)
	}
	out := make([]string, 0, len(hosts)+len(extra))
	for _, h := range hosts {
		out = append(out, "http://"+net.JoinHostPort(h, strconv.Itoa(port)))
	}
	for _, o := range extra {
		out = append(out, strings.TrimRight(o, "/"))
	}
	return out
}

func (a *app) serve(ctx context.Context, addr string, origins []string, withBrowser bool) error {
	j, err := a.semanticJudge()
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	cfg := web.Config{
		Differ:         pixeldiff.New(a.cfg.OutputDir, a.log),
		Judge:          j,
		Store:          st,
		PassThreshold:  a.cfg.Thresholds.Pass,
		FailThreshold:  a.cfg.Thresholds.Fail,
		AllowedOrigins: origins,
		Log:            a.log,
	}
	if withBrowser {
		if cfg.Launch, err = a.launcher(); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:        addr,
		Handler:     web.NewServer(cfg),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown on interrupt
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", addr).Strs("allowed_origins", origins).Bool("judge", j != nil).Bool("store", st != nil).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	a.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	a.log.Info().Msg("server stopped")
	return nil
}
