// Package errorspkg provides errors shared by all layers of the app.
package errorspkg

import "errors"

// ErrInternal indicates a failure whose details must not leak to clients.
var ErrInternal = errors.New("internal")
