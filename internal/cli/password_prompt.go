package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// readPasswordNoEcho reads one line from reader with echo disabled on stdin.
// Piped input is read as-is so scripted resets keep working. Successive
// prompts must share reader.
func readPasswordNoEcho(stdin *os.File, reader *bufio.Reader) ([]byte, error) {
	if stdin == nil {
		return nil, errors.New("stdin unavailable")
	}

	if restore, err := disableEcho(stdin); err == nil {
		defer restore()
	}

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}
