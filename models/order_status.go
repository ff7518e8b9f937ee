package models

import (
	"errors"
	"fmt"
)

// OrderStatus: состояние рекламного заказа.
type OrderStatus string

const (
	StatusPending     OrderStatus = "pending"
	StatusNegotiating OrderStatus = "negotiating"
	StatusPaid        OrderStatus = "paid"
	StatusActive      OrderStatus = "active"
	StatusCompleted   OrderStatus = "completed"
	StatusCancelled   OrderStatus = "cancelled"
	StatusViolated    OrderStatus = "violated"
	StatusDisputed    OrderStatus = "disputed"
)

// ErrIllegalTransition возвращается при попытке недопустимого перехода между состояниями заказа.
var ErrIllegalTransition = errors.New("illegal order transition")

// orderTransitions: единственная таблица допустимых переходов.
// Negotiating -> Negotiating означает встречное предложение.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:     {StatusPaid, StatusCancelled},
	StatusNegotiating: {StatusNegotiating, StatusCancelled},
	StatusPaid:        {StatusActive, StatusCancelled},
	StatusActive:      {StatusCompleted, StatusViolated, StatusDisputed},
	StatusCompleted:   {StatusDisputed},
}

// TransitionError описывает отклонённый переход.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("переход заказа %s -> %s запрещён", e.From, e.To)
}

// Is позволяет сравнивать ошибку с ErrIllegalTransition через errors.Is.
func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// Valid сообщает, известно ли состояние.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusNegotiating, StatusPaid, StatusActive,
		StatusCompleted, StatusCancelled, StatusViolated, StatusDisputed:
		return true
	}
	return false
}

// Terminal возвращает true для состояний без исходящих переходов.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransition проверяет переход по таблице.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition возвращает *TransitionError, если переход недопустим.
func CheckTransition(from, to OrderStatus) error {
	if !from.CanTransition(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
