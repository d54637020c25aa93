package mux

import "errors"

var (
	// ErrFinalized indicates a write after Finalize
	ErrFinalized = errors.New("muxer already finalized")

	// ErrNoVideo indicates Finalize was called before any video unit arrived
	ErrNoVideo = errors.New("no video units to mux")

	// ErrInvalidConfig indicates an unusable track layout
	ErrInvalidConfig = errors.New("invalid muxer configuration")
)
