package readers

import (
	"fmt"
	"strings"

	"github.com/notargets/goensight/mesh"
)

// Wildcard marks one digit of the file number in a data file name
const Wildcard = '*'

// wildcardRun returns the offset and length of the wildcard run of name
func wildcardRun(name string) (int, int, error) {
	first := strings.IndexByte(name, Wildcard)
	if first < 0 {
		return 0, 0, nil
	}
	last := strings.LastIndexByte(name, Wildcard)
	run := name[first : last+1]
	if strings.Trim(run, string(Wildcard)) != "" {
		return 0, 0, mesh.Parsef("wildcards of %q are not contiguous", name)
	}
	return first, len(run), nil
}

// Digits returns the number of decimal digits of n, 1 for n <= 0
func Digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}

// CheckWildcards verifies that name can address fileNumber. A negative
// fileNumber requires a name without wildcards, a non negative one requires
// a contiguous run with room for all of its digits.
func CheckWildcards(name string, fileNumber int) error {
	_, width, err := wildcardRun(name)
	if err != nil {
		return err
	}
	switch {
	case width > 0 && fileNumber < 0:
		return mesh.Parsef("%q has wildcards but addresses no time step", name)
	case width == 0 && fileNumber >= 0:
		return mesh.Parsef("%q has no wildcards for time step %d", name, fileNumber)
	case fileNumber >= 0 && Digits(fileNumber) > width:
		return mesh.Parsef("%q: %d wildcards are too few for file number %d", name, width, fileNumber)
	}
	return nil
}

// ExpandWildcards replaces the wildcard run of name with fileNumber, zero
// padded to the width of the run
func ExpandWildcards(name string, fileNumber int) (string, error) {
	if err := CheckWildcards(name, fileNumber); err != nil {
		return "", err
	}
	first, width, _ := wildcardRun(name)
	return name[:first] + fmt.Sprintf("%0*d", width, fileNumber) + name[first+width:], nil
}
