package random

import "github.com/google/uuid"

// Random provides identifier generation that can be mocked for testing
type Random interface {
	// NewID returns a new opaque unique identifier
	NewID() string
}

// UUIDRandom implements Random with random (version 4) UUIDs
type UUIDRandom struct{}

// New creates a new UUIDRandom
func New() *UUIDRandom {
	return &UUIDRandom{}
}

// NewID returns a random UUID string
func (r *UUIDRandom) NewID() string {
	return uuid.NewString()
}
