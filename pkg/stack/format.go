// Package stack reads and writes the binary section containers that hold
// interferogram networks: pair lists, drop flags, per-pair baselines and
// coherence rasters for ifgramStack files, and date/baseline series for
// timeseries files. Sections are snappy-compressed and CRC-checked.
package stack

import (
	"errors"
	"fmt"
)

// Magic identifies a stack container file.
var Magic = [8]byte{'S', 'A', 'R', 'S', 'T', 'K', '0', '1'}

// FileExt is the conventional extension for stack container files.
const FileExt = ".stk"

// Kind is the declared type of a container, stored in the FILE_TYPE attribute.
type Kind string

const (
	// KindIfgramStack holds the full interferogram network: pair list,
	// drop flags, per-pair baselines and coherence rasters.
	KindIfgramStack Kind = "ifgramStack"
	// KindTimeseries holds per-date values: date list and baseline series.
	KindTimeseries Kind = "timeseries"
	// KindMask holds a single raster used to mask coherence averaging.
	KindMask Kind = "mask"
)

// Well-known attribute keys.
const (
	AttrFileType = "FILE_TYPE"
	AttrWidth    = "WIDTH"
	AttrLength   = "LENGTH"
)

// Well-known section names.
const (
	SectionDate12        = "date12"
	SectionDropMask      = "dropMask"
	SectionBperp         = "bperp"
	SectionCoherenceKeys = "coherence/keys"
	SectionCoherenceData = "coherence/data"
	SectionDate          = "date"
	SectionPbase         = "pbase"
	SectionMask          = "mask"
)

// Common sentinel errors
var (
	ErrBadMagic        = errors.New("not a stack container")
	ErrSectionNotFound = errors.New("section not found")
	ErrChecksum        = errors.New("section checksum mismatch")
	ErrWrongKind       = errors.New("accessor not supported for this file kind")
	ErrClosed          = errors.New("container is closed")
)

// header is the JSON-encoded directory written after the magic bytes.
type header struct {
	Attrs    map[string]string `json:"attrs"`
	Sections []sectionInfo     `json:"sections"`
}

type sectionInfo struct {
	Name string `json:"name"`
	// Offset is relative to the start of the data area, which begins
	// immediately after the header block.
	Offset    int64  `json:"offset"`
	Length    int64  `json:"length"`
	RawLength int64  `json:"rawLength"`
	Checksum  uint32 `json:"checksum"`
}

// SectionError provides structured error information for container access.
type SectionError struct {
	Op      string
	Path    string
	Section string
	Cause   error
}

// Error implements the error interface.
func (e *SectionError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("%s %s (section %s): %v", e.Op, e.Path, e.Section, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SectionError) Unwrap() error {
	return e.Cause
}
