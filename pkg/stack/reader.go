package stack

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/snappy"
)

// Stack is an open container. It is safe for sequential use only; the
// resolver assumes exclusive read access for the duration of a load.
type Stack struct {
	path     string
	file     *os.File
	dataOff  int64
	attrs    map[string]string
	sections map[string]sectionInfo
}

// Open opens a stack container and reads its header.
func Open(path string) (*Stack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var magic [8]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		f.Close()
		return nil, &SectionError{Op: "open", Path: path, Cause: ErrBadMagic}
	}
	if magic != Magic {
		f.Close()
		return nil, &SectionError{Op: "open", Path: path, Cause: ErrBadMagic}
	}

	var hdrLen uint32
	if err := binary.Read(f, binary.BigEndian, &hdrLen); err != nil {
		f.Close()
		return nil, &SectionError{Op: "open", Path: path, Cause: err}
	}
	hdrBytes := make([]byte, hdrLen)
	if _, err := io.ReadFull(f, hdrBytes); err != nil {
		f.Close()
		return nil, &SectionError{Op: "open", Path: path, Cause: err}
	}

	var hdr header
	if err := json.Unmarshal(hdrBytes, &hdr); err != nil {
		f.Close()
		return nil, &SectionError{Op: "open", Path: path, Cause: err}
	}

	s := &Stack{
		path:     path,
		file:     f,
		dataOff:  int64(len(Magic)) + 4 + int64(hdrLen),
		attrs:    hdr.Attrs,
		sections: make(map[string]sectionInfo, len(hdr.Sections)),
	}
	for _, sec := range hdr.Sections {
		s.sections[sec.Name] = sec
	}
	return s, nil
}

// Close closes the underlying file.
func (s *Stack) Close() error {
	if s.file == nil {
		return ErrClosed
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Path returns the container path.
func (s *Stack) Path() string {
	return s.path
}

// Kind returns the declared file kind from the FILE_TYPE attribute.
func (s *Stack) Kind() Kind {
	return Kind(s.attrs[AttrFileType])
}

// Attr returns a header attribute.
func (s *Stack) Attr(key string) (string, bool) {
	v, ok := s.attrs[key]
	return v, ok
}

// Dims returns the raster dimensions (rows, columns).
func (s *Stack) Dims() (length, width int, err error) {
	length, err = s.intAttr(AttrLength)
	if err != nil {
		return 0, 0, err
	}
	width, err = s.intAttr(AttrWidth)
	if err != nil {
		return 0, 0, err
	}
	return length, width, nil
}

func (s *Stack) intAttr(key string) (int, error) {
	v, ok := s.attrs[key]
	if !ok {
		return 0, &SectionError{Op: "read", Path: s.path, Cause: fmt.Errorf("missing attribute %s", key)}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &SectionError{Op: "read", Path: s.path, Cause: fmt.Errorf("attribute %s: %w", key, err)}
	}
	return n, nil
}

// readSection reads, checksums and decompresses one section payload.
func (s *Stack) readSection(name string) ([]byte, error) {
	if s.file == nil {
		return nil, ErrClosed
	}
	sec, ok := s.sections[name]
	if !ok {
		return nil, &SectionError{Op: "read", Path: s.path, Section: name, Cause: ErrSectionNotFound}
	}

	compressed := make([]byte, sec.Length)
	if _, err := s.file.ReadAt(compressed, s.dataOff+sec.Offset); err != nil {
		return nil, &SectionError{Op: "read", Path: s.path, Section: name, Cause: err}
	}
	if crc32.ChecksumIEEE(compressed) != sec.Checksum {
		return nil, &SectionError{Op: "read", Path: s.path, Section: name, Cause: ErrChecksum}
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, &SectionError{Op: "read", Path: s.path, Section: name, Cause: err}
	}
	if int64(len(payload)) != sec.RawLength {
		return nil, &SectionError{Op: "read", Path: s.path, Section: name,
			Cause: fmt.Errorf("decoded %d bytes, header says %d", len(payload), sec.RawLength)}
	}
	return payload, nil
}

// HasSection reports whether the container carries the named section.
func (s *Stack) HasSection(name string) bool {
	_, ok := s.sections[name]
	return ok
}

func (s *Stack) stringList(name string) ([]string, error) {
	payload, err := s.readSection(name)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}
	return strings.Split(string(payload), "\n"), nil
}

func (s *Stack) float64s(name string) ([]float64, error) {
	payload, err := s.readSection(name)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(payload)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.BigEndian.Uint64(payload[8*i:]))
	}
	return values, nil
}

func (s *Stack) float32s(name string) ([]float32, error) {
	payload, err := s.readSection(name)
	if err != nil {
		return nil, err
	}
	values := make([]float32, len(payload)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[4*i:]))
	}
	return values, nil
}

// FullPairList returns every pair key in stored order, dropped or not.
// This is the authoritative pair universe.
func (s *Stack) FullPairList() ([]string, error) {
	if s.Kind() != KindIfgramStack {
		return nil, &SectionError{Op: "read", Path: s.path, Section: SectionDate12, Cause: ErrWrongKind}
	}
	return s.stringList(SectionDate12)
}

// KeptPairList returns the pairs whose drop flag is not set, in stored order.
// A container without a dropMask section keeps everything.
func (s *Stack) KeptPairList() ([]string, error) {
	pairs, err := s.FullPairList()
	if err != nil {
		return nil, err
	}
	if !s.HasSection(SectionDropMask) {
		return pairs, nil
	}
	mask, err := s.readSection(SectionDropMask)
	if err != nil {
		return nil, err
	}
	if len(mask) != len(pairs) {
		return nil, &SectionError{Op: "read", Path: s.path, Section: SectionDropMask,
			Cause: fmt.Errorf("%d flags for %d pairs", len(mask), len(pairs))}
	}
	kept := make([]string, 0, len(pairs))
	for i, p := range pairs {
		if mask[i] == 0 {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// FullDateList returns every acquisition date referenced by any pair,
// dropped or not, sorted ascending. YYYYMMDD keys sort chronologically.
func (s *Stack) FullDateList() ([]string, error) {
	pairs, err := s.FullPairList()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, 2*len(pairs))
	for _, p := range pairs {
		m, sec, ok := strings.Cut(p, "_")
		if !ok {
			return nil, &SectionError{Op: "read", Path: s.path, Section: SectionDate12,
				Cause: fmt.Errorf("malformed pair key %q", p)}
		}
		seen[m] = struct{}{}
		seen[sec] = struct{}{}
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// PairBaselines returns the perpendicular baseline of every pair in
// FullPairList order.
func (s *Stack) PairBaselines() ([]float64, error) {
	if s.Kind() != KindIfgramStack {
		return nil, &SectionError{Op: "read", Path: s.path, Section: SectionBperp, Cause: ErrWrongKind}
	}
	return s.float64s(SectionBperp)
}

// StoredDateList returns the date list of a timeseries container.
func (s *Stack) StoredDateList() ([]string, error) {
	if s.Kind() != KindTimeseries {
		return nil, &SectionError{Op: "read", Path: s.path, Section: SectionDate, Cause: ErrWrongKind}
	}
	return s.stringList(SectionDate)
}

// StoredBaselines returns the per-date baseline array of a timeseries container.
func (s *Stack) StoredBaselines() ([]float64, error) {
	if s.Kind() != KindTimeseries {
		return nil, &SectionError{Op: "read", Path: s.path, Section: SectionPbase, Cause: ErrWrongKind}
	}
	return s.float64s(SectionPbase)
}

// StringSection reads a string-list section by name. Per-dataset key lists
// such as "coherence/keys" hold pair keys in the order the dataset was
// computed and stored, which is independent of FullPairList.
func (s *Stack) StringSection(name string) ([]string, error) {
	return s.stringList(name)
}

// Float32Section reads a float32-array section by name. Per-dataset raster
// sections such as "coherence/data" hold one LENGTH x WIDTH raster per key.
func (s *Stack) Float32Section(name string) ([]float32, error) {
	return s.float32s(name)
}

// ReadMask opens a mask container and returns its raster with dimensions.
func ReadMask(path string) (mask []float32, length, width int, err error) {
	s, err := Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer s.Close()

	if s.Kind() != KindMask {
		return nil, 0, 0, &SectionError{Op: "read", Path: path, Section: SectionMask, Cause: ErrWrongKind}
	}
	length, width, err = s.Dims()
	if err != nil {
		return nil, 0, 0, err
	}
	mask, err = s.float32s(SectionMask)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(mask) != length*width {
		return nil, 0, 0, &SectionError{Op: "read", Path: path, Section: SectionMask,
			Cause: fmt.Errorf("raster has %d values, dims say %d", len(mask), length*width)}
	}
	return mask, length, width, nil
}
