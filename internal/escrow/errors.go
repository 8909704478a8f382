package escrow

import (
	"errors"
	"fmt"
)

var (
	// ErrListingNotFound — объявление не найдено.
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingUnavailable — операция не допустима в текущем статусе объявления.
	ErrListingUnavailable = errors.New("listing not available")
	// ErrOwnListing — продавец пытается купить собственное объявление.
	ErrOwnListing = errors.New("cannot commit to own listing")
	// ErrNotSeller — verify вызван не продавцом объявления.
	ErrNotSeller = errors.New("caller is not the seller")
	// ErrCodeLocked — сделка заморожена после исчерпания попыток.
	ErrCodeLocked = errors.New("transaction is frozen")
)

// CodeMismatchError — неверный код выдачи; хранит остаток попыток.
type CodeMismatchError struct {
	AttemptsLeft int
}

func (e *CodeMismatchError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts left", e.AttemptsLeft)
}
