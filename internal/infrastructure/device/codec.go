package device

import (
	"bufio"
	"fmt"
	"io"
)

// The device API speaks in sentences: a sequence of length-prefixed words
// terminated by a zero-length word. Word lengths use a variable-width
// encoding: one byte below 0x80, widening up to five bytes.

func encodeLength(n int) []byte {
	switch {
	case n < 0x80:
		return []byte{byte(n)}
	case n < 0x4000:
		return []byte{byte(n>>8) | 0x80, byte(n)}
	case n < 0x200000:
		return []byte{byte(n>>16) | 0xC0, byte(n >> 8), byte(n)}
	case n < 0x10000000:
		return []byte{byte(n>>24) | 0xE0, byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{0xF0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

func readLength(r *bufio.Reader) (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	var n int
	var extra int
	switch {
	case b&0x80 == 0:
		return int(b), nil
	case b&0xC0 == 0x80:
		n = int(b & 0x3F)
		extra = 1
	case b&0xE0 == 0xC0:
		n = int(b & 0x1F)
		extra = 2
	case b&0xF0 == 0xE0:
		n = int(b & 0x0F)
		extra = 3
	case b == 0xF0:
		n = 0
		extra = 4
	default:
		return 0, fmt.Errorf("invalid length prefix 0x%02X", b)
	}

	for i := 0; i < extra; i++ {
		next, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		n = n<<8 | int(next)
	}
	return n, nil
}

func writeWord(w io.Writer, word string) error {
	if _, err := w.Write(encodeLength(len(word))); err != nil {
		return err
	}
	_, err := io.WriteString(w, word)
	return err
}

func readWord(r *bufio.Reader) (string, error) {
	n, err := readLength(r)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeSentence(w io.Writer, words []string) error {
	for _, word := range words {
		if err := writeWord(w, word); err != nil {
			return err
		}
	}
	// zero-length terminator
	_, err := w.Write([]byte{0})
	return err
}

func readSentence(r *bufio.Reader) ([]string, error) {
	var words []string
	for {
		word, err := readWord(r)
		if err != nil {
			return nil, err
		}
		if word == "" {
			return words, nil
		}
		words = append(words, word)
	}
}
