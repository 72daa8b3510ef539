package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrInvalid
	ErrNotFound
	ErrConflict
	ErrTooMany
	ErrUnavailable
	ErrInternal
)
