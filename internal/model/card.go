package model

// Pointer event types accepted by the strokes endpoint.
const (
	PointerDown  = "down"
	PointerMove  = "move"
	PointerUp    = "up"
	PointerLeave = "leave"
)

// StartCardRequest is the DTO for mounting a scratch card.
type StartCardRequest struct {
	UserID         string `json:"user_id" validate:"required,notblank,max=255"`
	ContainerWidth *int   `json:"container_width" validate:"required,gte=0,lte=4096"`
	OfferID        string `json:"offer_id" validate:"omitempty,uuid"`
}

// PointerEvent is a single pointer input in canvas-local coordinates.
type PointerEvent struct {
	Type string `json:"type" validate:"required,oneof=down move up leave"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// StrokeRequest is the DTO for a batch of pointer events.
type StrokeRequest struct {
	Events []PointerEvent `json:"events" validate:"required,min=1,max=512,dive"`
}

// ResizeRequest is the DTO for a container resize.
type ResizeRequest struct {
	ContainerWidth *int `json:"container_width" validate:"required,gte=0,lte=4096"`
}

// CardResponse is the API view of a scratch card.
// PromoCode and ExpiryText are only present once the card is revealed.
type CardResponse struct {
	ID                 string `json:"id"`
	State              string `json:"state"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	Progress           int    `json:"progress"`
	ProgressText       string `json:"progress_text"`
	Revealed           bool   `json:"revealed"`
	PromoCode          string `json:"promo_code,omitempty"`
	ExpiryText         string `json:"expiry_text,omitempty"`
	ShareText          string `json:"share_text,omitempty"`
	Title              string `json:"title,omitempty"`
	Description        string `json:"description,omitempty"`
	DiscountPercentage string `json:"discount_percentage,omitempty"`
}
