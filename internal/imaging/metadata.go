package imaging

import (
	"bytes"
	"encoding/binary"
)

const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerAPP1   = 0xE1
	markerSOS    = 0xDA
)

var exifHeader = []byte("Exif\x00\x00")

// extractExif returns the complete APP1 Exif segment (marker, length and payload) of a
// JPEG stream, or nil if the stream has none. Scanning stops at the first SOS marker.
func extractExif(data []byte) []byte {
	if len(data) < 4 || data[0] != markerPrefix || data[1] != markerSOI {
		return nil
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != markerPrefix {
			return nil
		}
		marker := data[pos+1]
		if marker == markerSOS {
			return nil
		}
		segLen := int(data[pos+2])<<8 | int(data[pos+3])
		end := pos + 2 + segLen
		if segLen < 2 || end > len(data) {
			return nil
		}
		if marker == markerAPP1 && bytes.HasPrefix(data[pos+4:end], exifHeader) {
			return append([]byte(nil), data[pos:end]...)
		}
		pos = end
	}
	return nil
}

// injectExif inserts an APP1 segment directly after the SOI marker of a JPEG stream.
// Streams that do not start with SOI are returned unchanged.
func injectExif(data, segment []byte) []byte {
	if len(data) < 2 || data[0] != markerPrefix || data[1] != markerSOI {
		return data
	}
	out := make([]byte, 0, len(data)+len(segment))
	out = append(out, data[:2]...)
	out = append(out, segment...)
	out = append(out, data[2:]...)
	return out
}

const tagOrientation = 0x0112

// ExifOrientation returns the orientation tag (1-8) stored in IFD0 of an APP1 Exif
// segment as returned in Surface.Exif. Missing or malformed data reports 1.
//
// Orientations 5 to 8 rotate by 90 degrees: viewers swap width and height.
func ExifOrientation(segment []byte) int {
	if len(segment) < 4+len(exifHeader) || !bytes.HasPrefix(segment[4:], exifHeader) {
		return 1
	}
	tiff := segment[4+len(exifHeader):]
	if len(tiff) < 8 {
		return 1
	}

	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 1
	}

	ifd := int(order.Uint32(tiff[4:8]))
	if ifd < 8 || ifd+2 > len(tiff) {
		return 1
	}
	count := int(order.Uint16(tiff[ifd:]))
	for i := 0; i < count; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(tiff) {
			return 1
		}
		if order.Uint16(tiff[entry:]) != tagOrientation {
			continue
		}
		// SHORT value, left-justified in the 4-byte value field
		v := int(order.Uint16(tiff[entry+8:]))
		if v < 1 || v > 8 {
			return 1
		}
		return v
	}
	return 1
}
