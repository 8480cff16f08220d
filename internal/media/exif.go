package media

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	markerSOI  = 0xD8
	markerAPP1 = 0xE1
	markerSOS  = 0xDA
	markerEOI  = 0xD9
)

var exifHeader = []byte("Exif\x00\x00")

// ErrNoEXIF is returned when a JPEG carries no EXIF segment.
var ErrNoEXIF = errors.New("no exif segment")

// ExtractEXIF returns the complete EXIF APP1 segment (marker, length and
// payload) of the JPEG at path. Only the header segments are read.
func ExtractEXIF(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var soi [2]byte
	if _, err := io.ReadFull(r, soi[:]); err != nil {
		return nil, err
	}
	if soi[0] != 0xFF || soi[1] != markerSOI {
		return nil, fmt.Errorf("not a JPEG file")
	}

	for {
		marker, err := nextMarker(r)
		if err != nil {
			return nil, err
		}
		if marker == markerSOS || marker == markerEOI {
			return nil, ErrNoEXIF
		}
		// Standalone markers carry no length.
		if marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			continue
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, err
		}
		length := int(binary.BigEndian.Uint16(lenBuf[:]))
		if length < 2 {
			return nil, fmt.Errorf("corrupt segment length %d", length)
		}
		payload := make([]byte, length-2)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}

		if marker == markerAPP1 && bytes.HasPrefix(payload, exifHeader) {
			seg := make([]byte, 0, length+2)
			seg = append(seg, 0xFF, markerAPP1)
			seg = append(seg, lenBuf[:]...)
			return append(seg, payload...), nil
		}
	}
}

func nextMarker(r *bufio.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return 0, fmt.Errorf("expected marker, found 0x%02X", b)
	}
	// Markers may be preceded by any number of 0xFF fill bytes.
	for b == 0xFF {
		if b, err = r.ReadByte(); err != nil {
			return 0, err
		}
	}
	return b, nil
}

// SpliceEXIF inserts an APP1 segment directly after the SOI marker of jpeg.
func SpliceEXIF(jpeg, segment []byte) ([]byte, error) {
	if len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != markerSOI {
		return nil, fmt.Errorf("output is not a JPEG stream")
	}
	if len(segment) < 4 || segment[0] != 0xFF || segment[1] != markerAPP1 {
		return nil, fmt.Errorf("segment is not an APP1 block")
	}
	if int(binary.BigEndian.Uint16(segment[2:4]))+2 != len(segment) {
		return nil, fmt.Errorf("segment length does not match its header")
	}

	out := make([]byte, 0, len(jpeg)+len(segment))
	out = append(out, jpeg[:2]...)
	out = append(out, segment...)
	return append(out, jpeg[2:]...), nil
}
