package btree

import "errors"

// ErrKeyArity is returned when a key does not have one value per indexed
// column.
var ErrKeyArity = errors.New("btree: key arity does not match index columns")
