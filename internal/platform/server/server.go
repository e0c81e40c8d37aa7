package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpchandler "github.com/ogurasousui/talent-board/internal/adapters/grpc/handler"
)

const shutdownTimeout = 15 * time.Second

// Server は HTTP API と内部向け gRPC サーバーのライフサイクルを管理します。
type Server struct {
	httpAddr   string
	grpcAddr   string
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	logger     *slog.Logger
}

// New は HTTP ハンドラと推薦ユースケースからサーバーを構築します。grpcAddr が空の場合 gRPC は起動しません。
func New(httpAddr, grpcAddr string, api http.Handler, matches grpchandler.MatchingUseCase, logger *slog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := grpc.NewServer(opts...)
	grpchandler.RegisterMatchingServer(srv, grpchandler.NewMatchingGrpcHandler(matches))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{
		httpAddr: httpAddr,
		grpcAddr: grpcAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           api,
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcServer: srv,
		health:     hs,
		logger:     logger,
	}
}

// Run は両サーバーを起動し、コンテキストがキャンセルされると停止します。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpAddr, err)
	}
	var grpcLis net.Listener
	if s.grpcAddr != "" {
		grpcLis, err = net.Listen("tcp", s.grpcAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("listen on %s: %w", s.grpcAddr, err)
		}
	}
	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve は与えられたリスナーで待ち受けます。grpcLis が nil の場合 gRPC は起動しません。
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", slog.String("addr", httpLis.Addr().String()))
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})
	if grpcLis != nil {
		g.Go(func() error {
			s.logger.Info("grpc server listening", slog.String("addr", grpcLis.Addr().String()))
			s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
			s.health.SetServingStatus(grpchandler.MatchingServiceName, healthpb.HealthCheckResponse_SERVING)
			if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	return g.Wait()
}

func (s *Server) shutdown() {
	s.health.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", slog.Any("error", err))
	}
	s.grpcServer.GracefulStop()
}
