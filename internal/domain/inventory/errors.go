package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the only error kind the operator itself raises.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	ErrEmptyOrder      = fmt.Errorf("%w: order has no items", ErrInvalidArgument)
	ErrVariantNotFound = errors.New("variant not found")
	ErrVariantExists   = errors.New("variant already exists")
)

// InsufficientOnHoldError is returned when releasing an order would push a
// variant's on-hold quantity below zero.
type InsufficientOnHoldError struct {
	VariantName string
	OnHold      int
	Requested   int
}

func (e *InsufficientOnHoldError) Error() string {
	return fmt.Sprintf("not enough units to decrease on hold quantity from the inventory of a variant %q", e.VariantName)
}

func (e *InsufficientOnHoldError) Unwrap() error {
	return ErrInvalidArgument
}
