// Package apperr содержит классификацию ошибок ядра.
// Вызывающая сторона различает по виду ошибки, что показать пользователю:
// исправить ввод, повторить позже или операция невозможна.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindExternal   Kind = "external"
	KindGuard      Kind = "not_applied"
	KindAmbiguous  Kind = "ambiguous"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindInternal   Kind = "internal"
)

// Error: ошибка с видом и исходной причиной.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is сопоставляет ошибку с сентинелом того же вида (сентинелы не имеют текста).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Сентинелы для errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrExternal   = &Error{Kind: KindExternal}
	ErrGuard      = &Error{Kind: KindGuard}
	ErrAmbiguous  = &Error{Kind: KindAmbiguous}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrForbidden  = &Error{Kind: KindForbidden}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(what string, id any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %v не найден", what, id)}
}

// External оборачивает сбой внешнего сервиса. Такие ошибки можно повторить.
func External(service string, err error) error {
	return &Error{Kind: KindExternal, Msg: service, Err: err}
}

// Guard сообщает, что операция отклонена проверкой согласованности и ничего не применено.
func Guard(format string, args ...any) error {
	return &Error{Kind: KindGuard, Msg: fmt.Sprintf(format, args...)}
}

func Ambiguous(err error) error {
	return &Error{Kind: KindAmbiguous, Msg: "неоднозначный сигнал", Err: err}
}

func Conflict(err error) error {
	return &Error{Kind: KindConflict, Err: err}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// Wrap добавляет контекст к ошибке, сохраняя её вид.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Msg: msg, Err: err}
}

// KindOf возвращает вид ошибки; неклассифицированные считаются внутренними.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable сообщает, имеет ли смысл повторить операцию позже.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindExternal, KindAmbiguous, KindConflict:
		return true
	}
	return false
}
