package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// StreamWriter writes length-prefixed control-channel messages onto a TCP
// stream, the same framing faf.StreamWriter uses for GPGNet commands:
// a length-prefixed command name followed by its typed payload.
type StreamWriter struct {
	w  *bufio.Writer
	mu sync.Mutex
}

func NewStreamWriter(w *bufio.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// WriteMessage serializes msg's type tag followed by its fields, then
// flushes the underlying buffer so the peer observes it immediately.
func (w *StreamWriter) WriteMessage(msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeString(string(msg.Type())); err != nil {
		return err
	}
	if err := encodeMessage(w, msg); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *StreamWriter) writeString(s string) error {
	if err := binary.Write(w.w, binary.LittleEndian, int32(len(s))); err != nil {
		return err
	}
	_, err := w.w.Write([]byte(s))
	return err
}

func (w *StreamWriter) writeBytes(b []byte) error {
	if err := binary.Write(w.w, binary.LittleEndian, int32(len(b))); err != nil {
		return err
	}
	_, err := w.w.Write(b)
	return err
}

func (w *StreamWriter) writeUint8(v uint8) error  { return w.w.WriteByte(v) }
func (w *StreamWriter) writeUint16(v uint16) error { return binary.Write(w.w, binary.LittleEndian, v) }
func (w *StreamWriter) writeUint32(v uint32) error { return binary.Write(w.w, binary.LittleEndian, v) }
func (w *StreamWriter) writeUint64(v uint64) error { return binary.Write(w.w, binary.LittleEndian, v) }
func (w *StreamWriter) writeFloat64(v float64) error {
	return binary.Write(w.w, binary.LittleEndian, v)
}
func (w *StreamWriter) writeMode(m Mode) error { return w.writeUint8(m.pack()) }

// StreamReader is the decoding half of StreamWriter.
type StreamReader struct {
	r *bufio.Reader
}

func NewStreamReader(r *bufio.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// ReadMessage blocks for the next framed message and dispatches to the
// decoder registered for its type tag, mirroring BaseMessage.TryParse.
func (r *StreamReader) ReadMessage() (Message, error) {
	typeName, err := r.readString()
	if err != nil {
		return nil, err
	}

	decode, known := messageRegistry[MessageType(typeName)]
	if !known {
		return nil, fmt.Errorf("protocol: unknown message type %q", typeName)
	}
	return decode(r)
}

func (r *StreamReader) readString() (string, error) {
	var n int32
	if err := binary.Read(r.r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n < 0 || n > 1<<20 {
		return "", fmt.Errorf("protocol: implausible string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (r *StreamReader) readBytes() ([]byte, error) {
	var n int32
	if err := binary.Read(r.r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n < 0 || n > 1<<24 {
		return nil, fmt.Errorf("protocol: implausible byte length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *StreamReader) readUint8() (uint8, error)  { return r.r.ReadByte() }
func (r *StreamReader) readUint16() (uint16, error) {
	var v uint16
	err := binary.Read(r.r, binary.LittleEndian, &v)
	return v, err
}
func (r *StreamReader) readUint32() (uint32, error) {
	var v uint32
	err := binary.Read(r.r, binary.LittleEndian, &v)
	return v, err
}
func (r *StreamReader) readUint64() (uint64, error) {
	var v uint64
	err := binary.Read(r.r, binary.LittleEndian, &v)
	return v, err
}
func (r *StreamReader) readFloat64() (float64, error) {
	var v float64
	err := binary.Read(r.r, binary.LittleEndian, &v)
	return v, err
}
func (r *StreamReader) readMode() (Mode, error) {
	b, err := r.readUint8()
	if err != nil {
		return Mode{}, err
	}
	return unpackMode(b), nil
}
