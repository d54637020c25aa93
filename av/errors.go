package av

import "errors"

// Sentinel errors for av package operations.
// These errors enable reliable error classification using errors.Is().

// Encode pipeline errors.
var (
	// ErrEncoder indicates a codec configuration or runtime failure.
	ErrEncoder = errors.New("encoder error")

	// ErrMux indicates a container packing or finalize failure.
	ErrMux = errors.New("mux error")

	// ErrUnsupportedEnvironment indicates a required encode capability is absent.
	ErrUnsupportedEnvironment = errors.New("unsupported environment")
)

// State machine errors.
var (
	// ErrInvalidTransition indicates an operation not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrTimestampRegression indicates a unit older than the previous one of its kind.
	ErrTimestampRegression = errors.New("timestamp regression")

	// ErrInvalidEncoderConfig indicates unusable encoder parameters.
	ErrInvalidEncoderConfig = errors.New("invalid encoder configuration")
)
