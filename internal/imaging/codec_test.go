package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"testing"
)

// testExifSegment builds a minimal APP1 Exif segment around payload.
func testExifSegment(payload []byte) []byte {
	body := append([]byte("Exif\x00\x00"), payload...)
	segLen := len(body) + 2
	seg := []byte{0xFF, 0xE1, byte(segLen >> 8), byte(segLen)}
	return append(seg, body...)
}

func TestCodec_Decode(t *testing.T) {
	codec := NewCodec()
	src := createPatternImage(40, 20)

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"png", encodePNG(t, src), "png"},
		{"jpeg", encodeJPEG(t, src), "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := codec.Decode(tt.data, DecodeOptions{})
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if s.Width() != 40 || s.Height() != 20 {
				t.Errorf("dimensions: got %dx%d, want 40x20", s.Width(), s.Height())
			}
			if s.SourceFormat != tt.format {
				t.Errorf("SourceFormat: got %s, want %s", s.SourceFormat, tt.format)
			}
		})
	}
}

func TestCodec_Decode_Errors(t *testing.T) {
	codec := NewCodec()
	png := encodePNG(t, createPatternImage(10, 10))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated", png[:len(png)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.data, DecodeOptions{})
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error: got %v, want *DecodeError", err)
			}
		})
	}
}

// pngHeaderOnly returns a PNG signature and IHDR chunk declaring w x h RGBA pixels.
func pngHeaderOnly(w, h uint32) []byte {
	chunk := []byte("IHDR")
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 6, 0, 0, 0)

	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, 13)
	out = append(out, chunk...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(chunk))
}

func TestCodec_Decode_PixelLimit(t *testing.T) {
	codec := NewCodec()
	small := encodePNG(t, createPatternImage(100, 100))

	tests := []struct {
		name    string
		data    []byte
		limit   int
		wantErr bool
	}{
		{"header over default limit", pngHeaderOnly(100000, 100000), 0, true},
		{"under custom limit", small, 10000, false},
		{"over custom limit", small, 9999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := codec.Decode(tt.data, DecodeOptions{MaxPixels: tt.limit})
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if s.Width() != 100 || s.Height() != 100 {
					t.Errorf("Decode() = %dx%d, want 100x100", s.Width(), s.Height())
				}
				return
			}
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
			if !errors.Is(err, ErrTooManyPixels) {
				t.Errorf("Decode() error = %v, want ErrTooManyPixels", err)
			}
		})
	}
}

func TestCodec_Resize(t *testing.T) {
	codec := NewCodec()
	s := SurfaceFromImage(createPatternImage(100, 50))

	out, err := codec.Resize(s, 40, 20)
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if out.Width() != 40 || out.Height() != 20 {
		t.Errorf("dimensions: got %dx%d, want 40x20", out.Width(), out.Height())
	}

	// A no-op resize returns a copy, never the input.
	same, err := codec.Resize(s, 100, 50)
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if same == s || &same.Pixels()[0] == &s.Pixels()[0] {
		t.Error("same-size Resize should return a copy")
	}
	if !bytes.Equal(same.Pixels(), s.Pixels()) {
		t.Error("same-size Resize changed pixel values")
	}
}

func TestCodec_Draw_Region(t *testing.T) {
	codec := NewCodec()
	s := SurfaceFromImage(createPatternImage(100, 100))

	// Top-right quadrant is green.
	out, err := codec.Draw(s, image.Rect(50, 0, 100, 50), 10, 10)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	got := out.Image().NRGBAAt(5, 5)
	if got.G < 200 || got.R > 50 || got.B > 50 {
		t.Errorf("pixel (5,5): got %v, want green", got)
	}

	if _, err := codec.Draw(s, image.Rect(200, 200, 300, 300), 10, 10); err == nil {
		t.Error("Draw should fail for a region outside the surface")
	}
}

func TestCodec_ZeroSize(t *testing.T) {
	codec := NewCodec()
	s := SurfaceFromImage(createPatternImage(10, 10))

	var encErr *EncodeError

	if _, err := codec.Resize(s, 0, 10); !errors.As(err, &encErr) {
		t.Errorf("Resize to zero width: got %v, want *EncodeError", err)
	}

	_, err := codec.Encode(NewSurface(0, 0), PNG, EncodeOptions{Quality: 0.8})
	if !errors.As(err, &encErr) {
		t.Fatalf("Encode of empty surface: got %v, want *EncodeError", err)
	}
	if !errors.Is(err, ErrEmptySurface) {
		t.Error("EncodeError should unwrap to ErrEmptySurface")
	}
}

func TestCodec_Encode_Formats(t *testing.T) {
	codec := NewCodec()
	s := SurfaceFromImage(createPatternImage(64, 32))

	tests := []struct {
		format  Format
		decoded string
	}{
		{WebP, "webp"},
		{JPEG, "jpeg"},
		{PNG, "png"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			data, err := codec.Encode(s, tt.format, EncodeOptions{Quality: 0.8})
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			info, err := InspectImage(data)
			if err != nil {
				t.Fatalf("encoded output is not decodable: %v", err)
			}
			if info.Format != tt.decoded {
				t.Errorf("Format: got %s, want %s", info.Format, tt.decoded)
			}
			if info.Width != 64 || info.Height != 32 {
				t.Errorf("dimensions: got %dx%d, want 64x32", info.Width, info.Height)
			}
		})
	}
}

func TestCodec_Encode_Deterministic(t *testing.T) {
	codec := NewCodec()
	s := SurfaceFromImage(createPatternImage(32, 32))

	a, err := codec.Encode(s, WebP, EncodeOptions{Quality: 0.7})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := codec.Encode(s, WebP, EncodeOptions{Quality: 0.7})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical input produced different WebP bytes")
	}
}

func TestCodec_Encode_QualityAffectsSize(t *testing.T) {
	codec := NewCodec()
	img := image.NewNRGBA(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 7), uint8(y * 13), uint8((x ^ y) * 3), 255})
		}
	}
	s := SurfaceFromImage(img)

	low, err := codec.Encode(s, JPEG, EncodeOptions{Quality: 0.2})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	high, err := codec.Encode(s, JPEG, EncodeOptions{Quality: 0.95})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(low) >= len(high) {
		t.Errorf("low quality (%d bytes) should be smaller than high quality (%d bytes)", len(low), len(high))
	}
}

func TestCodec_Encode_Unsupported(t *testing.T) {
	codec := NewCodec()
	s := SurfaceFromImage(createPatternImage(8, 8))

	var encErr *EncodeError
	if _, err := codec.Encode(s, Format("bmp"), EncodeOptions{}); !errors.As(err, &encErr) {
		t.Errorf("got %v, want *EncodeError", err)
	}
}

func TestCodec_Encode_AVIFWithoutVips(t *testing.T) {
	if VipsEnabled {
		t.Skip("built with vips support")
	}

	codec := NewCodec()
	s := SurfaceFromImage(createPatternImage(8, 8))

	_, err := codec.Encode(s, AVIF, EncodeOptions{Quality: 0.5})
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("got %v, want *EncodeError", err)
	}
	if !errors.Is(err, ErrVipsDisabled) {
		t.Error("EncodeError should unwrap to ErrVipsDisabled")
	}
}

func TestCodec_ProgressiveJPEGFallsBackToBaseline(t *testing.T) {
	codec := NewCodec()
	s := SurfaceFromImage(createPatternImage(16, 16))

	data, err := codec.Encode(s, JPEG, EncodeOptions{Quality: 0.9, Progressive: true})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := InspectImage(data); err != nil {
		t.Errorf("progressive request produced undecodable output: %v", err)
	}
}

func TestCodec_ExifRoundTrip(t *testing.T) {
	codec := NewCodec()
	segment := testExifSegment([]byte("MM\x00\x2a\x00\x00\x00\x08\x00\x00"))
	input := injectExif(encodeJPEG(t, createPatternImage(24, 24)), segment)

	s, err := codec.Decode(input, DecodeOptions{PreserveMetadata: true})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(s.Exif, segment) {
		t.Fatalf("decoded Exif: got %x, want %x", s.Exif, segment)
	}

	out, err := codec.Encode(s, JPEG, EncodeOptions{Quality: 0.8, Exif: s.Exif})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := extractExif(out); !bytes.Equal(got, segment) {
		t.Errorf("encoded Exif: got %x, want %x", got, segment)
	}

	info, err := InspectImage(out)
	if err != nil {
		t.Fatalf("InspectImage failed: %v", err)
	}
	if !info.HasExif {
		t.Error("HasExif should be true after round trip")
	}
}

func TestCodec_ExifDroppedWithoutRequest(t *testing.T) {
	codec := NewCodec()
	segment := testExifSegment([]byte("II\x2a\x00\x08\x00\x00\x00\x00\x00"))
	input := injectExif(encodeJPEG(t, createPatternImage(24, 24)), segment)

	s, err := codec.Decode(input, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	out, err := codec.Encode(s, JPEG, EncodeOptions{Quality: 0.8})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if extractExif(out) != nil {
		t.Error("Exif should not be written unless requested")
	}
}

func TestQualityPercent(t *testing.T) {
	tests := []struct {
		q    float64
		want int
	}{
		{0, 1},
		{0.004, 1},
		{0.5, 50},
		{0.805, 81},
		{1, 100},
		{3, 100},
	}

	for _, tt := range tests {
		if got := qualityPercent(tt.q); got != tt.want {
			t.Errorf("qualityPercent(%v) = %d, want %d", tt.q, got, tt.want)
		}
	}
}
