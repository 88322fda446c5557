package writer

// ByteWriter accumulates everything written to it.
// Used to capture encoder stderr so diagnostics can
// be returned to the caller verbatim.
type ByteWriter struct {
	data []byte
}

func New() *ByteWriter {
	return &ByteWriter{
		data: make([]byte, 0),
	}
}

func (b *ByteWriter) Write(data []byte) (int, error) {
	b.data = append(b.data, data...)
	return len(data), nil
}

func (b *ByteWriter) String() string {
	return string(b.data)
}
