// Package denoise wires image loading, the belief propagation solver,
// progress reporting and output together into one denoising run.
package denoise
