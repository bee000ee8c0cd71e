package terminal

import (
	"io"
	"os"
	"sync"
)

// Share returns ws with every writer that is not an *os.File wrapped so that
// all of them take one lock per Write. The watch loop and the command's
// output copiers write concurrently, and an in-memory writer such as a
// bytes.Buffer passed for both would otherwise race.
//
// Files are returned unchanged: the kernel orders their writes, and the
// command must receive the file itself to inherit a terminal. Nil writers
// stay nil.
func Share(ws ...io.Writer) []io.Writer {
	mu := new(sync.Mutex)
	out := make([]io.Writer, len(ws))

	for i, w := range ws {
		switch w.(type) {
		case nil, *os.File, *lockedWriter:
			out[i] = w
		default:
			out[i] = &lockedWriter{mu: mu, w: w}
		}
	}

	return out
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}
