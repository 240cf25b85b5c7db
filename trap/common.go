package trap

import (
	"bufio"
	"io"
	"path/filepath"
	"strings"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
)

// readLine reads one newline-terminated line, trimming the trailing
// newline, matching STD_IN_STRING and the newline-terminated socket
// string traps' shared contract.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

// stringToCharArray allocates a char array (ByteElem-width payload
// holding the UTF-8 encoding of s) directly against ctx's heap, the
// same allocation CPY_CHAR_STR_ARY performs from the constant pool.
func stringToCharArray(ctx Context, s string) *heap.Allocation {
	b := []byte(s)
	a, err := ctx.AllocArray(program.CharElem, []int{len(b)})
	if err != nil {
		return nil
	}
	copy(a.Bytes, b)
	return a
}

// charArrayToString reverses stringToCharArray; a nil ref yields "".
func charArrayToString(ref *heap.Allocation) string {
	if ref == nil {
		return ""
	}
	return string(ref.Bytes)
}

func newLineReader(r io.Reader) *bufio.Reader { return bufio.NewReader(r) }

func filepathAbs(path string) (string, error) { return filepath.Abs(path) }
