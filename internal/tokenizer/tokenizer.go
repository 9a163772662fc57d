// Package tokenizer splits a byte stream into lowercase ASCII alphanumeric words.
package tokenizer

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

const readBufferSize = 32 * 1024

// Tokenizer produces the words of a single stream lazily. It is not
// restartable: once Scan returns false the stream is exhausted.
type Tokenizer struct {
	r         *bufio.Reader
	buf       []byte
	token     string
	err       error
	done      bool
	bytesRead int64
}

// New creates a Tokenizer reading from r.
func New(r io.Reader) *Tokenizer {
	return &Tokenizer{
		r:   bufio.NewReaderSize(r, readBufferSize),
		buf: make([]byte, 0, 64),
	}
}

// IsWordByte reports whether b is part of a word: 0-9, a-z or A-Z.
func IsWordByte(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// Scan advances to the next word, which is then available through Token.
// It returns false at end of input or on a read error; Err distinguishes
// the two.
func (t *Tokenizer) Scan() bool {
	if t.done {
		t.token = ""
		return false
	}

	for {
		b, err := t.r.ReadByte()
		if err != nil {
			t.done = true
			if !errors.Is(err, io.EOF) {
				t.err = err
			}
			// A word running up to end of input is still a word.
			return t.flush()
		}
		t.bytesRead++

		if IsWordByte(b) {
			t.buf = append(t.buf, lower(b))
			continue
		}
		if t.flush() {
			return true
		}
	}
}

func (t *Tokenizer) flush() bool {
	if len(t.buf) == 0 {
		t.token = ""
		return false
	}
	t.token = string(t.buf)
	t.buf = t.buf[:0]
	return true
}

// Token returns the word found by the most recent call to Scan.
func (t *Tokenizer) Token() string {
	return t.token
}

// Err returns the first non-EOF read error.
func (t *Tokenizer) Err() error {
	return t.err
}

// BytesRead returns the number of bytes consumed so far.
func (t *Tokenizer) BytesRead() int64 {
	return t.bytesRead
}

// All returns the words of r as a sequence. Read errors end the sequence
// silently; use a Tokenizer directly when they matter.
func All(r io.Reader) iter.Seq[string] {
	return func(yield func(string) bool) {
		t := New(r)
		for t.Scan() {
			if !yield(t.Token()) {
				return
			}
		}
	}
}
