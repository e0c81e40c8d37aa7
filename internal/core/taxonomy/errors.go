package taxonomy

import "errors"

var (
	ErrInvalidKind         = errors.New("taxonomy: invalid kind")
	ErrEmptyLabel          = errors.New("taxonomy: empty label")
	ErrInvalidID           = errors.New("taxonomy: invalid id")
	ErrTermNotFound        = errors.New("taxonomy: term not found")
	ErrTermAlreadyExists   = errors.New("taxonomy: term already exists")
	ErrSalaryRangeNotFound = errors.New("taxonomy: salary range not found")
)
