package dexerror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInternal     = Kind("internal")
	KindPrecondition = Kind("precondition")
	KindConfig       = Kind("config")
	KindSource       = Kind("source")
)

type ErrorDetail struct {
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

type InternalErrorDetail struct {
	ErrorID string `json:"error_id"`
	ErrorDetail
}

type PublicErrorDetail struct {
	Kind Kind `json:"kind"`
	ErrorDetail
}

type WhizdexError interface {
	Error() string
	Kind() Kind
	Unwrap() error
	PublicErrorDetail() PublicErrorDetail
	InternalErrorDetail() InternalErrorDetail
}

type errorOptions struct {
	kind     Kind
	cause    error
	public   PublicErrorDetail
	internal InternalErrorDetail
}

func (e *errorOptions) PublicErrorDetail() PublicErrorDetail {
	return e.public
}

func (e *errorOptions) InternalErrorDetail() InternalErrorDetail {
	return e.internal
}

func (e *errorOptions) Kind() Kind {
	return e.kind
}

func (e *errorOptions) Unwrap() error {
	return e.cause
}

func (e *errorOptions) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.public.Message, e.cause)
	}
	return e.public.Message
}

type ErrorOption func(*errorOptions)

func WithKind(kind Kind) ErrorOption {
	return func(opts *errorOptions) {
		opts.kind = kind
	}
}

func WithCause(err error) ErrorOption {
	return func(opts *errorOptions) {
		opts.cause = err
	}
}

func WithErrorID(errorID string) ErrorOption {
	return func(opts *errorOptions) {
		opts.internal.ErrorID = errorID
	}
}

func WithPublicMessage(message string) ErrorOption {
	return func(opts *errorOptions) {
		opts.public.Message = message
	}
}

func WithInternalMessage(message string) ErrorOption {
	return func(opts *errorOptions) {
		opts.internal.Message = message
	}
}

func WithPublicData(key string, value interface{}) ErrorOption {
	return func(opts *errorOptions) {
		if opts.public.Data == nil {
			opts.public.Data = make(map[string]interface{})
		}
		opts.public.Data[key] = value
	}
}

func WithInternalData(key string, value interface{}) ErrorOption {
	return func(opts *errorOptions) {
		if opts.internal.Data == nil {
			opts.internal.Data = make(map[string]interface{})
		}
		opts.internal.Data[key] = value
	}
}

func New(options ...ErrorOption) WhizdexError {
	opts := errorOptions{}
	for _, option := range options {
		option(&opts)
	}

	if opts.kind == "" {
		opts.kind = KindInternal
	}
	opts.public.Kind = opts.kind

	if opts.public.Message == "" {
		opts.public.Message = "internal error"
	}

	if opts.internal.ErrorID == "" {
		opts.internal.ErrorID = "unknown-error"
	}

	return &opts
}

// Precondition reports a caller programming error concerning a single field.
func Precondition(errorID, field, message string) WhizdexError {
	return New(
		WithKind(KindPrecondition),
		WithErrorID(errorID),
		WithPublicMessage(fmt.Sprintf("%s: %q", message, field)),
		WithPublicData("field", field),
	)
}

func asError(err error) (WhizdexError, bool) {
	var maybeErr WhizdexError
	if errors.As(err, &maybeErr) {
		return maybeErr, true
	}

	return nil, false
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if wde, ok := asError(err); ok {
		return wde.Kind()
	}
	return KindInternal
}

func IsPrecondition(err error) bool {
	return KindOf(err) == KindPrecondition
}

// FieldOf returns the offending field recorded on a precondition error, if any.
func FieldOf(err error) (string, bool) {
	wde, ok := asError(err)
	if !ok {
		return "", false
	}
	field, ok := wde.PublicErrorDetail().Data["field"].(string)
	return field, ok
}

func AsWhizdexError(err error) WhizdexError {
	wde, ok := asError(err)
	if ok {
		return wde
	}

	return New(
		WithErrorID("unknown_error"),
		WithKind(KindInternal),
		WithPublicMessage("internal error"),
		WithInternalMessage("non-whizdex error: "+err.Error()),
		WithCause(err),
	)
}
