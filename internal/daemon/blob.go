package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/matheus3301/apurimac/internal/blob"
	"go.uber.org/zap"
)

// BlobServer serves file-backed blobs over HTTP. A nil *BlobServer is a
// no-op, used when blobs live in S3.
type BlobServer struct {
	http     *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// newBlobServer binds listen. The handler is attached by the caller once the
// store knows its address.
func newBlobServer(listen string, logger *zap.Logger) (*BlobServer, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("listen blob endpoint: %w", err)
	}
	return &BlobServer{
		http:     &http.Server{ReadHeaderTimeout: 10 * time.Second},
		listener: ln,
		logger:   logger,
	}, nil
}

func (s *BlobServer) serve(files *blob.FileStore) {
	s.http.Handler = blob.Handler(files, s.logger)
}

// Addr returns the bound address.
func (s *BlobServer) Addr() string {
	if s == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start serves in the background.
func (s *BlobServer) Start() {
	if s == nil {
		return
	}
	s.logger.Info("blob endpoint starting", zap.String("addr", s.Addr()))
	go func() {
		if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("blob endpoint error", zap.Error(err))
		}
	}()
}

// Stop shuts the endpoint down.
func (s *BlobServer) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.logger.Info("blob endpoint stopping")
	err := s.http.Shutdown(ctx)
	_ = s.listener.Close()
	return err
}
