package domain

import "errors"

// ErrNotFound is returned by stores when a keyed update or delete matched nothing.
var ErrNotFound = errors.New("not found")
