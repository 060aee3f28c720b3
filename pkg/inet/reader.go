package inet

import (
	"fmt"
	"io"
	"iter"
)

// ChunkSize is the number of bytes requested from the backend per refill.
const ChunkSize = 1000

// ByteReader pulls a response body from the backend in ChunkSize blocks and
// hands it out one byte at a time. End of body and read failure are
// reported separately; both are terminal.
type ByteReader struct {
	resp    *Response
	buf     [ChunkSize]byte
	index   int
	size    int
	done    bool
	err     error
	pending error
}

// Next returns the next body byte. ok is false once the body is exhausted
// or a read failed; err is non-nil only in the latter case.
func (r *ByteReader) Next() (b byte, ok bool, err error) {
	if r.index >= r.size {
		if r.done {
			return 0, false, r.err
		}
		r.fill()
		if r.done {
			return 0, false, r.err
		}
	}
	b = r.buf[r.index]
	r.index++
	return b, true, nil
}

// fill performs one backend read into the buffer and resets the cursor.
// Bytes delivered alongside a read error are handed out first; the error
// ends the reader on the following refill.
func (r *ByteReader) fill() {
	if r.pending != nil {
		r.finish(r.pending)
		return
	}
	if err := r.resp.usable(); err != nil {
		r.finish(newError("read", HandleClosed, r.resp.url, err))
		return
	}

	n, err := r.resp.session.backend.ReadChunk(r.resp.handle, r.buf[:])
	if n < 0 || n > len(r.buf) {
		r.finish(newError("read", ReadFailed, r.resp.url, fmt.Errorf("backend reported %d bytes for a %d byte buffer", n, len(r.buf))))
		return
	}
	if err != nil {
		readErr := newError("read", ReadFailed, r.resp.url, err)
		if n == 0 {
			r.finish(readErr)
			return
		}
		r.pending = readErr
	}
	if n == 0 {
		r.finish(nil)
		return
	}
	r.size, r.index = n, 0
}

func (r *ByteReader) finish(err error) {
	r.done = true
	r.err = err
	r.size, r.index = 0, 0
}

// Err returns the read failure that ended the reader, if any.
func (r *ByteReader) Err() error { return r.err }

// ReadByte implements io.ByteReader.
func (r *ByteReader) ReadByte() (byte, error) {
	b, ok, err := r.Next()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, io.EOF
	}
	return b, nil
}

// Read implements io.Reader over the same cursor as Next.
func (r *ByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.index >= r.size {
		if !r.done {
			r.fill()
		}
		if r.done {
			if r.err != nil {
				return 0, r.err
			}
			return 0, io.EOF
		}
	}
	n := copy(p, r.buf[r.index:r.size])
	r.index += n
	return n, nil
}

// All returns the remaining bytes as a sequence. A read failure is yielded
// once as a final (0, err) pair.
func (r *ByteReader) All() iter.Seq2[byte, error] {
	return func(yield func(byte, error) bool) {
		for {
			b, ok, err := r.Next()
			if err != nil {
				yield(0, err)
				return
			}
			if !ok || !yield(b, nil) {
				return
			}
		}
	}
}
