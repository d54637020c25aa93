package timeline

import "errors"

// ErrInvalidRange indicates the trim window is empty or the source is too short to render.
var ErrInvalidRange = errors.New("invalid trim range")
