package service

import "errors"

var (
	// ErrCardNotFound is returned when no mounted card has the given id
	ErrCardNotFound = errors.New("scratch card not found")

	// ErrOfferNotFound is returned when a requested reward offer does not exist
	ErrOfferNotFound = errors.New("reward offer not found")

	// ErrOfferExists is returned when an offer with the same discount code already exists
	ErrOfferExists = errors.New("reward offer already exists")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAlreadyRevealed is returned when a reveal for the card was already recorded
	ErrAlreadyRevealed = errors.New("scratch card already revealed")

	// ErrEmptySurface is returned when rendering a card mounted in a zero-size container
	ErrEmptySurface = errors.New("scratch surface is empty")

	// ErrCapacity is returned when no more cards can be mounted
	ErrCapacity = errors.New("too many scratch cards mounted")

	// ErrRevealPending is returned when a card cannot be closed because its reveal is not stored yet
	ErrRevealPending = errors.New("reveal not recorded yet")
)
