// Package filter implements the pixel filters applied during optimization.
//
// Every function mutates an *image.NRGBA in place and is deterministic. Pixel data is
// treated as non-premultiplied RGBA; the alpha channel is never modified.
//
// # Convolution
//
// NoiseReduction and Sharpen apply 3x3 kernels to the R, G and B channels. The
// kernel reads from a snapshot of the input, so already-filtered neighbours never feed
// back into the result. Border pixels (first/last row and column) are left as they
// are; no padding is synthesized.
//
// # Quantization
//
// ReduceColorDepth buckets each channel into a fixed number of levels and
// FloydSteinberg thresholds each channel to 0 or 255, diffusing the error to
// unvisited neighbours in raster order. Reduce picks between them from an encoding
// quality.
//
// # Rounding
//
// Intermediate results are stored the way an 8-bit clamped buffer stores them:
// clamped to [0,255] and rounded half to even.
package filter
