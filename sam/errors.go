package sam

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindAllocationFailure
	KindPreprocess
	KindEngine
	KindNoEmbedding
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindAllocationFailure:
		return "AllocationFailure"
	case KindPreprocess:
		return "PreprocessError"
	case KindEngine:
		return "EngineError"
	case KindNoEmbedding:
		return "NoEmbeddingError"
	case KindInternal:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// 哨兵错误, 配合 errors.Is 按类别匹配
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrAllocationFailure = &Error{Kind: KindAllocationFailure}
	ErrPreprocess        = &Error{Kind: KindPreprocess}
	ErrEngine            = &Error{Kind: KindEngine}
	ErrNoEmbedding       = &Error{Kind: KindNoEmbedding}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error 带类别的错误
type Error struct {
	Kind Kind
	Op   string // 出错的操作, 如 "preprocess", "encode"
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同类别即视为匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func wrapError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 返回错误链中最外层的类别
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
