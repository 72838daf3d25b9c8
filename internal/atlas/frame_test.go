// ABOUTME: Tests for the line framer
// ABOUTME: Chunk boundaries must never alter parsed message count or content

package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func drain(b *lineBuffer) []string {
	var out []string
	for {
		line, ok := b.next()
		if !ok {
			return out
		}
		out = append(out, string(line))
	}
}

func TestLineBuffer_SingleChunk(t *testing.T) {
	var b lineBuffer
	b.feed([]byte("{\"id\":1}\n{\"id\":2}\r\n"))
	assert.Equal(t, []string{`{"id":1}`, `{"id":2}`}, drain(&b))
	assert.Equal(t, 0, b.pending())
}

func TestLineBuffer_ChunkBoundaries(t *testing.T) {
	input := "{\"id\":1,\"result\":[{\"param\":\"ZoneGain_0\",\"val\":-12}]}\r\n" +
		"{\"method\":\"update\",\"params\":{\"param\":\"ZoneGain_0\",\"val\":-6}}\n" +
		"{\"id\":2}\r\n"

	var whole lineBuffer
	whole.feed([]byte(input))
	want := drain(&whole)

	// Every split point must reconstruct the identical message set.
	for cut := 1; cut < len(input); cut++ {
		var b lineBuffer
		b.feed([]byte(input[:cut]))
		got := drain(&b)
		b.feed([]byte(input[cut:]))
		got = append(got, drain(&b)...)
		assert.Equal(t, want, got, "split at byte %d", cut)
	}
}

func TestLineBuffer_PartialTrailingBytesStayBuffered(t *testing.T) {
	var b lineBuffer
	b.feed([]byte("{\"id\":1}\n{\"id\":"))
	assert.Equal(t, []string{`{"id":1}`}, drain(&b))
	assert.Positive(t, b.pending())

	b.feed([]byte("2}\r\n"))
	assert.Equal(t, []string{`{"id":2}`}, drain(&b))
	assert.Equal(t, 0, b.pending())
}

func TestLineBuffer_MixedTerminators(t *testing.T) {
	var b lineBuffer
	b.feed([]byte("a\nb\r\nc\n"))
	assert.Equal(t, []string{"a", "b", "c"}, drain(&b))
}

func TestLineBuffer_EmptyLines(t *testing.T) {
	var b lineBuffer
	b.feed([]byte("\r\n\n{\"id\":1}\n"))
	assert.Equal(t, []string{"", "", `{"id":1}`}, drain(&b))
}
