package readers

import (
	"io"
	"os"
	"strings"

	"github.com/notargets/goensight/mesh"
)

// FileType is the encoding of a geometry or variable file
type FileType uint8

const (
	ASCII FileType = iota
	CBinary
	FortranBinary
)

func (t FileType) String() string {
	switch t {
	case CBinary:
		return "C Binary"
	case FortranBinary:
		return "Fortran Binary"
	default:
		return "ASCII"
	}
}

// DetectFileType sniffs the first record of a geometry file. Fortran
// binary files are recognised but rejected.
func DetectFileType(path string) (FileType, error) {
	f, err := os.Open(path)
	if err != nil {
		return ASCII, mesh.IOError(path, err)
	}
	defer f.Close()
	buf := make([]byte, RecordLength)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ASCII, mesh.IOError(path, err)
	}
	head := strings.ToUpper(trimRecord(buf[:n]))
	switch {
	case strings.HasPrefix(head, "C BINARY"):
		return CBinary, nil
	case strings.HasPrefix(head, "FORTRAN BINARY"):
		return FortranBinary, mesh.Parsef("%s: Fortran binary files are not supported", path)
	}
	return ASCII, nil
}
