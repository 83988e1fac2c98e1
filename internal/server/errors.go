package server

import (
	"errors"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
)

// ErrorResponse represents the structure of errors returned by the tools
type ErrorResponse struct {
	Status     string                 `json:"status"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
}

// Error response codes
const (
	StatusCodeValidationError = "VALIDATION_ERROR"
	StatusCodeDatabaseError   = "DATABASE_ERROR"
	StatusCodeConfigError     = "CONFIG_ERROR"
	StatusCodeInternalError   = "INTERNAL_ERROR"
	StatusCodeEmbeddingError  = "EMBEDDING_ERROR"
	StatusCodeClusteringError = "CLUSTERING_ERROR"
	StatusCodeProjectionError = "PROJECTION_ERROR"
	StatusCodeExternalError   = "EXTERNAL_ERROR"
	StatusCodeUnknownError    = "UNKNOWN_ERROR"
)

var errorCodes = map[errortypes.ErrorType]string{
	errortypes.ErrorTypeValidation: StatusCodeValidationError,
	errortypes.ErrorTypeDatabase:   StatusCodeDatabaseError,
	errortypes.ErrorTypeConfig:     StatusCodeConfigError,
	errortypes.ErrorTypeInternal:   StatusCodeInternalError,
	errortypes.ErrorTypeEmbedding:  StatusCodeEmbeddingError,
	errortypes.ErrorTypeClustering: StatusCodeClusteringError,
	errortypes.ErrorTypeProjection: StatusCodeProjectionError,
	errortypes.ErrorTypeExternal:   StatusCodeExternalError,
}

// ErrorCode returns the stable code a client sees for err.
func ErrorCode(err error) string {
	var appErr *errortypes.AppError
	if !errors.As(err, &appErr) {
		return StatusCodeUnknownError
	}
	if code, ok := errorCodes[appErr.Type]; ok {
		return code
	}
	return StatusCodeUnknownError
}

// ToErrorResponse converts an error to a standardized ErrorResponse.
// Stack traces stay in the logs.
func ToErrorResponse(err error) ErrorResponse {
	if err == nil {
		err = errors.New("unknown error")
	}

	resp := ErrorResponse{
		Status:  "error",
		Code:    ErrorCode(err),
		Message: err.Error(),
	}

	var appErr *errortypes.AppError
	if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
		resp.Details = appErr.Fields
	}
	return resp
}
