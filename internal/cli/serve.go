package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/health"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the background sync agent with health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	a, err := openApp(ctx, rootOpts)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	lis, err := net.Listen("tcp", a.cfg.Server.GRPCPort)
	if err != nil {
		return err
	}

	proc := a.processor()
	writer := repository.NewWriter(a.repo, a.engine, a.logger)
	reporter := health.NewReporter(a.engine, a.metrics, a.logger)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){proc.Start, writer.Start, reporter.Start} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}

	grpcServer := grpc.NewServer()
	reporter.Register(grpcServer)

	go func() {
		a.logger.Info("Health server listening", zap.String("address", a.cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			a.logger.Error("failed to serve gRPC", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.Handle("/connectivity", connectivityHandler(a.engine))
	httpServer := &http.Server{
		Addr:              a.cfg.Server.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("Metrics server listening", zap.String("address", a.cfg.Server.MetricsAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to serve metrics", zap.Error(err))
		}
	}()

	<-ctx.Done()
	a.logger.Info("Shutting down stock agent...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("metrics server shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	wg.Wait()

	a.logger.Info("Stock agent stopped")
	return nil
}

// connectivityHandler reports the online flag on GET and sets it on POST
// with ?online=true|false.
func connectivityHandler(uc stocktake.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			online, err := strconv.ParseBool(r.URL.Query().Get("online"))
			if err != nil {
				http.Error(w, "online must be true or false", http.StatusBadRequest)
				return
			}
			uc.SetOnline(online)
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = writeJSON(w, map[string]bool{"online": uc.Online()})
	})
}
