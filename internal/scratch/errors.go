package scratch

import "errors"

// ErrEmptySurface is returned when rendering a layer of a zero-size container.
var ErrEmptySurface = errors.New("scratch surface is empty")
