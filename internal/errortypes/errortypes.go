// Package errortypes provides error types and handling for NeuroGalaxy.
package errortypes

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

// Error types
const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDatabase   ErrorType = "database"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"

	// Pipeline stages. Embedding, clustering and projection failures are fatal
	// for a run; external failures are absorbed by the namer.
	ErrorTypeEmbedding  ErrorType = "embedding"
	ErrorTypeClustering ErrorType = "clustering"
	ErrorTypeProjection ErrorType = "projection"
	ErrorTypeExternal   ErrorType = "external"
)

// AppError represents an application error with context
type AppError struct {
	Err       error
	Type      ErrorType
	Message   string
	StackInfo string
	Fields    map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Err.Error()
}

// Unwrap unwraps the error to support errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithField adds a field to the error for additional context
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithFields adds multiple fields to the error for additional context
func (e *AppError) WithFields(fields map[string]interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
	return e
}

// Stage returns the pipeline stage recorded on the error, if any.
func (e *AppError) Stage() string {
	if s, ok := e.Fields["stage"].(string); ok {
		return s
	}
	return ""
}

// captureStack captures the stack trace at the call site
func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "testing/") && !strings.Contains(frame.File, "/go/src/") {
			fmt.Fprintf(&builder, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return builder.String()
}

// newAppError and newStageError are called only by the exported
// constructors, so the captured stack starts at the constructor's caller.
func newAppError(errType ErrorType, err error, message string) *AppError {
	return buildAppError(errType, err, message, captureStack())
}

func newStageError(errType ErrorType, err error, message string) *AppError {
	return buildAppError(errType, err, message, captureStack()).WithField("stage", string(errType))
}

func buildAppError(errType ErrorType, err error, message, stack string) *AppError {
	if err == nil {
		err = errors.New("unknown error")
	}

	return &AppError{
		Err:       err,
		Type:      errType,
		Message:   message,
		StackInfo: stack,
		Fields:    make(map[string]interface{}),
	}
}

// ValidationError creates a new validation error
func ValidationError(err error, message string) *AppError {
	return newAppError(ErrorTypeValidation, err, message)
}

// DatabaseError creates a new database error
func DatabaseError(err error, message string) *AppError {
	return newAppError(ErrorTypeDatabase, err, message)
}

// ConfigError creates a new configuration error
func ConfigError(err error, message string) *AppError {
	return newAppError(ErrorTypeConfig, err, message)
}

// InternalError creates a new internal error
func InternalError(err error, message string) *AppError {
	return newAppError(ErrorTypeInternal, err, message)
}

// EmbeddingError creates an error for a failed embedding stage.
func EmbeddingError(err error, message string) *AppError {
	return newStageError(ErrorTypeEmbedding, err, message)
}

// ClusteringError creates an error for a failed clustering stage.
func ClusteringError(err error, message string) *AppError {
	return newStageError(ErrorTypeClustering, err, message)
}

// ProjectionError creates an error for a failed projection stage.
func ProjectionError(err error, message string) *AppError {
	return newStageError(ErrorTypeProjection, err, message)
}

// ExternalServiceError creates an error for a failed call to an external
// text-generation service.
func ExternalServiceError(err error, message string) *AppError {
	return newAppError(ErrorTypeExternal, err, message)
}

// LogError logs an AppError using the provided slog.Logger or the default slog logger.
// It logs the error message, type, stack trace, and any associated fields.
func LogError(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		args := []any{
			"type", string(appErr.Type),
			"original_error", appErr.Err.Error(),
		}
		if appErr.StackInfo != "" {
			args = append(args, "stack", appErr.StackInfo)
		}
		for k, v := range appErr.Fields {
			args = append(args, k, v)
		}
		logger.Error(appErr.Message, args...)
	} else {
		logger.Error(err.Error(), "error", err)
	}
}

// IsType reports whether err wraps an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return IsType(err, ErrorTypeValidation) }

// IsDatabaseError checks if an error is a database error
func IsDatabaseError(err error) bool { return IsType(err, ErrorTypeDatabase) }

// IsEmbeddingError checks if an error is an embedding stage error
func IsEmbeddingError(err error) bool { return IsType(err, ErrorTypeEmbedding) }

// IsClusteringError checks if an error is a clustering stage error
func IsClusteringError(err error) bool { return IsType(err, ErrorTypeClustering) }

// IsProjectionError checks if an error is a projection stage error
func IsProjectionError(err error) bool { return IsType(err, ErrorTypeProjection) }

// IsExternalServiceError checks if an error came from an external service
func IsExternalServiceError(err error) bool { return IsType(err, ErrorTypeExternal) }
