package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/talent-board/internal/core/person"
)

var errMissingPersonID = errors.New("person_id is required")

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errMissingPersonID),
		errors.Is(err, person.ErrInvalidID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, person.ErrPersonNotFound),
		errors.Is(err, person.ErrProfileNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
