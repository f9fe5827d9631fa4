package stack

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"strings"

	"github.com/golang/snappy"
)

// Writer builds a stack container in memory and writes it out on Close.
type Writer struct {
	path     string
	attrs    map[string]string
	names    []string
	payloads map[string][]byte
	closed   bool
}

// NewWriter creates a container writer for the given path and file kind.
func NewWriter(path string, kind Kind) *Writer {
	return &Writer{
		path:     path,
		attrs:    map[string]string{AttrFileType: string(kind)},
		payloads: make(map[string][]byte),
	}
}

// SetAttr sets a header attribute.
func (w *Writer) SetAttr(key, value string) {
	w.attrs[key] = value
}

// SetDims sets the raster dimensions (rows, columns).
func (w *Writer) SetDims(length, width int) {
	w.attrs[AttrLength] = fmt.Sprintf("%d", length)
	w.attrs[AttrWidth] = fmt.Sprintf("%d", width)
}

// PutStringList stores a newline-joined string list section.
func (w *Writer) PutStringList(name string, values []string) {
	w.put(name, []byte(strings.Join(values, "\n")))
}

// PutFloat64s stores a float64 array section.
func (w *Writer) PutFloat64s(name string, values []float64) {
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	w.put(name, buf)
}

// PutFloat32s stores a float32 array section.
func (w *Writer) PutFloat32s(name string, values []float32) {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	w.put(name, buf)
}

// PutBytes stores a raw byte section.
func (w *Writer) PutBytes(name string, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	w.put(name, buf)
}

func (w *Writer) put(name string, payload []byte) {
	if _, ok := w.payloads[name]; !ok {
		w.names = append(w.names, name)
	}
	w.payloads[name] = payload
}

// Close compresses every section and writes the container file.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	hdr := header{Attrs: w.attrs}
	var data []byte
	for _, name := range w.names {
		compressed := snappy.Encode(nil, w.payloads[name])
		hdr.Sections = append(hdr.Sections, sectionInfo{
			Name:      name,
			Offset:    int64(len(data)),
			Length:    int64(len(compressed)),
			RawLength: int64(len(w.payloads[name])),
			Checksum:  crc32.ChecksumIEEE(compressed),
		})
		data = append(data, compressed...)
	}

	hdrBytes, err := json.Marshal(hdr)
	if err != nil {
		return &SectionError{Op: "write", Path: w.path, Cause: err}
	}

	f, err := os.Create(w.path)
	if err != nil {
		return &SectionError{Op: "write", Path: w.path, Cause: err}
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(Magic[:]); err != nil {
		return &SectionError{Op: "write", Path: w.path, Cause: err}
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(len(hdrBytes))); err != nil {
		return &SectionError{Op: "write", Path: w.path, Cause: err}
	}
	if _, err := bw.Write(hdrBytes); err != nil {
		return &SectionError{Op: "write", Path: w.path, Cause: err}
	}
	if _, err := bw.Write(data); err != nil {
		return &SectionError{Op: "write", Path: w.path, Cause: err}
	}
	if err := bw.Flush(); err != nil {
		return &SectionError{Op: "write", Path: w.path, Cause: err}
	}
	return f.Sync()
}
