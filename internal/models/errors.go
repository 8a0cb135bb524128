package models

import "errors"

// ErrNotFound is returned by stores when a record does not exist or is not
// visible to the requesting owner. The two cases are deliberately
// indistinguishable.
var ErrNotFound = errors.New("not found")
