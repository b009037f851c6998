package api

import (
	"errors"

	"github.com/matheus3301/apurimac/internal/apperr"
	"github.com/matheus3301/apurimac/internal/auth"
	"github.com/matheus3301/apurimac/internal/backend"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps view-model errors to gRPC status codes, keeping the display
// message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	msg := apperr.Message(err)
	switch {
	case errors.Is(err, backend.ErrNotSignedIn), errors.Is(err, auth.ErrInvalidCredentials):
		return grpcstatus.Error(codes.Unauthenticated, msg)
	case apperr.Is(err, apperr.KindValidation):
		return grpcstatus.Error(codes.InvalidArgument, msg)
	case apperr.Is(err, apperr.KindNotFound):
		return grpcstatus.Error(codes.NotFound, msg)
	case apperr.Is(err, apperr.KindConflict):
		return grpcstatus.Error(codes.AlreadyExists, msg)
	default:
		return grpcstatus.Error(codes.Unavailable, msg)
	}
}
