package mesh

import (
	"errors"
	"fmt"
)

// Error classes. Concrete errors wrap one of these, test with errors.Is.
var (
	ErrParse      = errors.New("parse error")
	ErrIO         = errors.New("io error")
	ErrStructural = errors.New("structural error")
	ErrNotEditing = fmt.Errorf("%w: not in edit mode, call BeginEdit first", ErrStructural)
	ErrEditing    = fmt.Errorf("%w: in edit mode, call EndEdit first", ErrStructural)
)

// Structuralf formats a structural error
func Structuralf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStructural, fmt.Sprintf(format, args...))
}

// Parsef formats a parse error
func Parsef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// IOError wraps an underlying I/O failure on path
func IOError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
}
