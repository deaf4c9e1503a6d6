package protocol

import (
	"bufio"
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// marshalGameStateSnapshot renders a snapshot to its raw wire bytes so it
// can be zlib-compressed as a single blob rather than field by field.
func marshalGameStateSnapshot(s GameStateSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := NewStreamWriter(bufio.NewWriter(&buf))
	if err := encodeGameStateSnapshot(w, s); err != nil {
		return nil, err
	}
	if err := w.w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalGameStateSnapshot(raw []byte) (GameStateSnapshot, error) {
	r := NewStreamReader(bufio.NewReader(bytes.NewReader(raw)))
	return decodeGameStateSnapshot(r)
}

// compressBytes and decompressBytes back SpectateConfig's payload, using
// klauspost/compress's zlib implementation for its lower allocation
// overhead versus the standard library's compress/zlib on the small,
// bursty payloads a spectator join produces.
func compressBytes(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBytes(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return readAllCapped(zr)
}

func readAllCapped(r io.Reader) ([]byte, error) {
	limited := io.LimitReader(r, 8<<20)
	var out bytes.Buffer
	if _, err := io.Copy(&out, limited); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
