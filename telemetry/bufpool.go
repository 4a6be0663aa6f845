package telemetry

import (
	"bytes"
	"sync"
)

// gzipBufPool pools the *bytes.Buffer used to stage compressed frame
// output, avoiding a fresh allocation on every Serialize call under
// sustained telemetry throughput. Uses the pointer-to-pooled-object
// pattern to keep sync.Pool itself allocation-free on Get/Put.
var gzipBufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func getGzipBuf() *bytes.Buffer {
	buf := gzipBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putGzipBuf(buf *bytes.Buffer) {
	gzipBufPool.Put(buf)
}
