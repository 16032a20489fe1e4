package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents internal error codes for detector operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Caller errors
	ErrCodeInvalidArgument    ErrorCode = 1000
	ErrCodeLanguageNotFound   ErrorCode = 1001
	ErrCodeNoTrainedLanguages ErrorCode = 1002
	ErrCodeTrainingIncomplete ErrorCode = 1003
	ErrCodeTrainingComplete   ErrorCode = 1004

	// Server errors
	ErrCodeInternal         ErrorCode = 2000
	ErrCodeCorpusUnreadable ErrorCode = 2001
	ErrCodeCanceled         ErrorCode = 2002
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                 "OK",
	ErrCodeInvalidArgument:    "INVALID_ARGUMENT",
	ErrCodeLanguageNotFound:   "LANGUAGE_NOT_FOUND",
	ErrCodeNoTrainedLanguages: "NO_TRAINED_LANGUAGES",
	ErrCodeTrainingIncomplete: "TRAINING_INCOMPLETE",
	ErrCodeTrainingComplete:   "TRAINING_COMPLETE",
	ErrCodeInternal:           "INTERNAL",
	ErrCodeCorpusUnreadable:   "CORPUS_UNREADABLE",
	ErrCodeCanceled:           "CANCELED",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// DetectError represents a structured error with code and context
type DetectError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *DetectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *DetectError) Unwrap() error {
	return e.Cause
}

// ToGRPCStatus converts DetectError to gRPC status
func (e *DetectError) ToGRPCStatus() *status.Status {
	return status.New(e.GRPCCode(), e.Error())
}

// GRPCCode maps internal error codes to gRPC codes
func (e *DetectError) GRPCCode() codes.Code {
	switch e.Code {
	case ErrCodeOK:
		return codes.OK
	case ErrCodeInvalidArgument:
		return codes.InvalidArgument
	case ErrCodeLanguageNotFound:
		return codes.NotFound
	case ErrCodeNoTrainedLanguages, ErrCodeTrainingIncomplete, ErrCodeTrainingComplete:
		return codes.FailedPrecondition
	case ErrCodeCorpusUnreadable:
		return codes.Unavailable
	case ErrCodeCanceled:
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// NewDetectError creates a new DetectError
func NewDetectError(code ErrorCode, message string, cause error) *DetectError {
	return &DetectError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *DetectError) WithDetail(key string, value interface{}) *DetectError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func InvalidArgument(message string, cause error) *DetectError {
	return NewDetectError(ErrCodeInvalidArgument, message, cause)
}

func InvalidLanguage(language, reason string) *DetectError {
	return NewDetectError(ErrCodeInvalidArgument, fmt.Sprintf("invalid language label %q: %s", language, reason), nil).
		WithDetail("language", language).
		WithDetail("reason", reason)
}

func QueryTooLarge(size, maxSize int) *DetectError {
	return NewDetectError(ErrCodeInvalidArgument, fmt.Sprintf("query size %d exceeds maximum %d", size, maxSize), nil).
		WithDetail("size", size).
		WithDetail("max_size", maxSize)
}

func LanguageNotFound(language string) *DetectError {
	return NewDetectError(ErrCodeLanguageNotFound, fmt.Sprintf("language not found: %s", language), nil).
		WithDetail("language", language)
}

func NoTrainedLanguages() *DetectError {
	return NewDetectError(ErrCodeNoTrainedLanguages, "no trained languages", nil)
}

func TrainingIncomplete() *DetectError {
	return NewDetectError(ErrCodeTrainingIncomplete, "training not complete: profiles have not been truncated", nil)
}

func TrainingComplete() *DetectError {
	return NewDetectError(ErrCodeTrainingComplete, "training already complete: profiles are read-only", nil)
}

func CorpusUnreadable(message string, cause error) *DetectError {
	return NewDetectError(ErrCodeCorpusUnreadable, message, cause)
}

func TrainingCanceled(cause error) *DetectError {
	return NewDetectError(ErrCodeCanceled, "training canceled", cause)
}

func QueryCanceled(cause error) *DetectError {
	return NewDetectError(ErrCodeCanceled, "query canceled", cause)
}

func InternalError(message string, cause error) *DetectError {
	return NewDetectError(ErrCodeInternal, message, cause)
}

// IsDetectError checks if an error is, or wraps, a DetectError
func IsDetectError(err error) bool {
	var de *DetectError
	return stderrors.As(err, &de)
}

// AsDetectError returns the first DetectError in err's chain
func AsDetectError(err error) (*DetectError, bool) {
	var de *DetectError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var de *DetectError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

// IsNoTrainedLanguages reports whether err signals an empty profile store
func IsNoTrainedLanguages(err error) bool {
	return GetCode(err) == ErrCodeNoTrainedLanguages
}

// ToGRPCError converts any error into a gRPC status error
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	var de *DetectError
	if stderrors.As(err, &de) {
		return de.ToGRPCStatus().Err()
	}
	return status.Error(codes.Internal, err.Error())
}
