package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError so callers can branch without string matching.
type Kind string

const (
	KindInternal      Kind = "internal"
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindImageDecode   Kind = "image_decode"
	KindGeneration    Kind = "generation"
	KindTimeout       Kind = "timeout"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindStore         Kind = "store"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "내부 오류가 발생했습니다."
	// GenerationErrorMessage is shown when the generation service call fails.
	GenerationErrorMessage = "API 호출 중 오류가 발생했습니다. (키/네트워크/요금/모델/이미지 형식 등을 확인)"
	// TimeoutErrorMessage is shown when the generation service does not answer in time.
	TimeoutErrorMessage = "보고서 생성 시간이 초과되었습니다. 잠시 후 다시 시도하세요."
	// ImageDecodeErrorMessage is shown when the uploaded image cannot be read.
	ImageDecodeErrorMessage = "이미지를 읽을 수 없습니다. jpg/png 형식의 사진을 업로드하세요."
	// StoreErrorMessage describes session store failures.
	StoreErrorMessage = "세션 저장소 처리 중 오류가 발생했습니다."
	// StoreNotFoundMessage is used when a session key does not exist.
	StoreNotFoundMessage = "저장된 결과가 없습니다."
)

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Detail returns the verbatim text of the underlying error, or "" when there is none.
func (e *AppError) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// New creates a new AppError with the provided information.
func New(kind Kind, err error, status int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Configuration reports a missing or invalid startup setting.
func Configuration(message string) *AppError {
	return New(KindConfiguration, nil, http.StatusInternalServerError, message)
}

// Validation reports a rejected input; no generation is attempted.
func Validation(message string) *AppError {
	return New(KindValidation, nil, http.StatusUnprocessableEntity, message)
}

// ImageDecode reports an unreadable or unsupported image payload.
func ImageDecode(err error) *AppError {
	return New(KindImageDecode, err, http.StatusUnprocessableEntity, ImageDecodeErrorMessage)
}

// Generation reports a failed call to the generation service.
func Generation(err error) *AppError {
	return New(KindGeneration, err, http.StatusBadGateway, GenerationErrorMessage)
}

// Timeout reports a generation call that exceeded its deadline.
func Timeout(err error) *AppError {
	return New(KindTimeout, err, http.StatusGatewayTimeout, TimeoutErrorMessage)
}

// Conflict reports an operation rejected because another one is still running.
func Conflict(message string) *AppError {
	return New(KindConflict, nil, http.StatusConflict, message)
}

// NotFound reports a missing resource.
func NotFound(message string) *AppError {
	return New(KindNotFound, nil, http.StatusNotFound, message)
}

// Internal wraps an unexpected error behind the generic system message.
func Internal(err error) *AppError {
	return New(KindInternal, err, http.StatusInternalServerError, SystemErrorMessage)
}

// Is reports whether the target matches the underlying error or carries the same kind.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) && t != nil && t.Err == nil && t.Kind == e.Kind {
		return true
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// From extracts the outermost AppError from err, if any.
func From(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if appErr, ok := From(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
