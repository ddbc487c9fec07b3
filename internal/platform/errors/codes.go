package apperrors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error kind that survives transport.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidDuration Code = "INVALID_DURATION"
	CodeNotPaused       Code = "NOT_PAUSED"
	CodeNotActive       Code = "NOT_ACTIVE"
	CodeInactiveSession Code = "INACTIVE_SESSION"
	CodeNotFound        Code = "SESSION_NOT_FOUND"
	CodeNoActiveSession Code = "NO_ACTIVE_SESSION"
	CodeConflict        Code = "CONFLICT"
)

func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeInvalidInput, CodeInvalidDuration:
		return codes.InvalidArgument
	case CodeNotPaused, CodeNotActive, CodeInactiveSession:
		return codes.FailedPrecondition
	case CodeNotFound, CodeNoActiveSession:
		return codes.NotFound
	case CodeConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}
