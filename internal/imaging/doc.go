// Package imaging provides the raster surface used by the optimization pipeline.
//
// A Surface is an in-memory RGBA pixel buffer with known width and height. The
// Engine interface turns encoded bytes into surfaces and back:
//
//   - Decode: PNG, JPEG, GIF, BMP, TIFF and WebP input
//   - Resize / Draw: Catmull-Rom (bicubic) resampling of a whole surface or a region
//   - Encode: WebP, JPEG, PNG and, with the vips build tag, AVIF
//
// Codec is the Engine implementation backed by github.com/disintegration/imaging and
// github.com/chai2010/webp. The filter and worker packages only see surfaces, so they
// can be tested without touching any codec.
//
// # Coordinate System
//
// Surfaces always start at (0,0). X increases rightward and Y downward. Regions passed
// to Draw use inclusive top-left and exclusive bottom-right corners.
//
// # Metadata
//
// Encoding writes pixel data only. The single exception is a JPEG-to-JPEG round trip
// with EncodeOptions.Exif set, where the source APP1 segment is copied verbatim. When
// metadata is not preserved, the EXIF orientation is applied to the pixels during
// Decode so the output displays the same way without the tag.
//
// # Error Handling
//
// Decode failures are reported as *DecodeError and encode failures (zero-area
// surface, unsupported format, encoder error) as *EncodeError. Both unwrap to the
// underlying cause.
//
// # Thread Safety
//
// Codec is stateless and may be shared, although each pool worker constructs its
// own. SourceCache is safe for concurrent use. Surfaces are not; callers hand them
// between goroutines by copying.
package imaging
