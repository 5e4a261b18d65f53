package grpcserver

import (
	"errors"
	"fmt"

	"karavanCanteen/internal/apperr"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var codeMap = []struct {
	err  error
	code codes.Code
}{
	{apperr.ErrValidation, codes.InvalidArgument},
	{apperr.ErrNotFound, codes.NotFound},
	{apperr.ErrForbidden, codes.PermissionDenied},
	{apperr.ErrInvalidTransition, codes.FailedPrecondition},
	{apperr.ErrStaleState, codes.Aborted},
	{apperr.ErrStoreUnavailable, codes.Unavailable},
}

// toStatus converts a core error into a gRPC status error. Errors that already carry a
// status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	for _, m := range codeMap {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Errorf(codes.Internal, "internal: %v", err)
}

// fromStatus turns a status received by the client back into a core error so callers
// can match it with errors.Is.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, m := range codeMap {
		if st.Code() == m.code {
			return fmt.Errorf("%w: %s", m.err, st.Message())
		}
	}
	return err
}
