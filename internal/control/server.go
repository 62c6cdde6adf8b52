package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 3 * time.Second

// Serve runs gRPC and HTTP on ln until ctx is cancelled. gRPC requests are
// told apart by their content-type; everything else goes to the REST mux.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	mux, err := s.NewMux()
	if err != nil {
		return fmt.Errorf("build http mux: %w", err)
	}

	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	gs := grpc.NewServer()
	RegisterControlServer(gs, s)

	g, gctx := errgroup.WithContext(ctx)
	hs := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// Websocket handlers watch the request context; tie it to shutdown.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	slog.Info("control plane listening", "addr", ln.Addr().String())

	g.Go(func() error { return ignoreClosed(gs.Serve(grpcL)) })
	g.Go(func() error { return ignoreClosed(hs.Serve(httpL)) })
	g.Go(func() error { return ignoreClosed(m.Serve()) })
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = hs.Shutdown(sctx)
		gs.Stop()
		_ = ln.Close()
		return nil
	})

	err = g.Wait()
	slog.Info("control plane stopped", "addr", ln.Addr().String())
	return err
}

func ignoreClosed(err error) error {
	switch {
	case err == nil,
		errors.Is(err, net.ErrClosed),
		errors.Is(err, http.ErrServerClosed),
		errors.Is(err, grpc.ErrServerStopped),
		errors.Is(err, cmux.ErrListenerClosed):
		return nil
	}
	return err
}
