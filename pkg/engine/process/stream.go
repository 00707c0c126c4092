// This code is adapted from the uci package's OutputStream (itself
// adapted from the go-cmd project), generalized to accept writes from
// more than one concurrent source so a child's stdout and stderr can be
// merged onto the same line channel.
package process

import (
	"bytes"
	"fmt"
	"sync"
)

const defaultLineBufferSize = 16384

// ErrLineBufferOverflow is returned by OutputStream.Write when the
// internal line buffer fills before a newline terminates the line.
type ErrLineBufferOverflow struct {
	Line       string
	BufferSize int
	BufferFree int
}

func (e ErrLineBufferOverflow) Error() string {
	return fmt.Sprintf("line does not contain newline and is %d bytes too long to buffer (buffer size: %d)",
		len(e.Line)-e.BufferSize, e.BufferSize)
}

// OutputStream is an io.Writer that splits arbitrary writes into
// complete lines and forwards each to a channel. Lines are terminated
// by a single newline with an optional preceding carriage return; both
// are stripped before the line is sent. Safe for concurrent Write calls
// from multiple goroutines (e.g. one copying stdout, one copying
// stderr), so both streams can be merged onto one channel.
type OutputStream struct {
	mu         sync.Mutex
	streamChan chan string
	bufSize    int
	buf        []byte
	lastChar   int
}

// NewOutputStream creates an OutputStream forwarding complete lines to
// streamChan. The caller must be receiving from streamChan before the
// underlying command starts, since Write blocks when the channel is full.
func NewOutputStream(streamChan chan string, lineBufSize int) *OutputStream {
	if lineBufSize <= 0 {
		lineBufSize = defaultLineBufferSize
	}
	return &OutputStream{
		streamChan: streamChan,
		bufSize:    lineBufSize,
		buf:        make([]byte, lineBufSize),
	}
}

// Write implements io.Writer.
func (o *OutputStream) Write(p []byte) (n int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	n = len(p)
	firstChar := 0

	for {
		newlineOffset := bytes.IndexByte(p[firstChar:], '\n')
		if newlineOffset < 0 {
			break
		}

		lastChar := firstChar + newlineOffset
		if newlineOffset > 0 && p[firstChar+newlineOffset-1] == '\r' {
			lastChar--
		}

		var line string
		if o.lastChar > 0 {
			line = string(o.buf[0:o.lastChar])
			o.lastChar = 0
		}
		line += string(p[firstChar:lastChar])
		o.streamChan <- line

		firstChar += newlineOffset + 1
	}

	if firstChar < n {
		remain := len(p[firstChar:])
		bufFree := len(o.buf[o.lastChar:])
		if remain > bufFree {
			var line string
			if o.lastChar > 0 {
				line = string(o.buf[0:o.lastChar])
			}
			line += string(p[firstChar:])
			n = firstChar
			err = ErrLineBufferOverflow{Line: line, BufferSize: o.bufSize, BufferFree: bufFree}
			return
		}
		copy(o.buf[o.lastChar:], p[firstChar:])
		o.lastChar += remain
	}

	return
}
