package catalog

import "errors"

var (
	ErrTableExists = errors.New("catalog: table already exists")
	ErrNoSuchTable = errors.New("catalog: no such table")
	ErrIndexExists = errors.New("catalog: index already exists")
	ErrNoSuchIndex = errors.New("catalog: no such index")
	ErrViewExists  = errors.New("catalog: view already exists")
	ErrNoSuchView  = errors.New("catalog: no such view")
)
