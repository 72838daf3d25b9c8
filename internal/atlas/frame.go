// ABOUTME: Line framer for the Atlas TCP byte stream
// ABOUTME: Splits newline-delimited JSON across arbitrary chunk boundaries

package atlas

import "bytes"

// lineBuffer accumulates raw socket bytes and yields complete lines.
// Atlas firmware terminates messages with either \n or \r\n depending
// on generation; both are accepted. Partial trailing bytes stay
// buffered until the next read delivers the rest.
type lineBuffer struct {
	buf bytes.Buffer
}

func (b *lineBuffer) feed(p []byte) {
	b.buf.Write(p)
}

// next extracts the next complete line without its terminator. Returns
// false when no full line is buffered yet.
func (b *lineBuffer) next() ([]byte, bool) {
	data := b.buf.Bytes()
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return nil, false
	}
	line := make([]byte, i)
	copy(line, data[:i])
	b.buf.Next(i + 1)
	return bytes.TrimSuffix(line, []byte{'\r'}), true
}

// pending returns the number of buffered bytes not yet forming a line.
func (b *lineBuffer) pending() int {
	return b.buf.Len()
}
