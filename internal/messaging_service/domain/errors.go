package domain

import "errors"

var (
	// ErrEmptyMessage is returned when there is neither text nor an attachment to send.
	ErrEmptyMessage = errors.New("cannot send empty message")
	// ErrInvalidRecipient is returned when a send has no usable recipient.
	ErrInvalidRecipient = errors.New("invalid recipient")
)
