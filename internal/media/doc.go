// Package media holds the image side of ingestion: geometry classification,
// crop rectangle computation, the frame-ready transform and display previews.
//
// Every accepted image is reduced to a TargetWidth x TargetHeight derivative.
// The crop establishes the aspect and the resample stretches the crop to the
// exact target size. The imaging library is the default backend; when libvips
// has been started with InitVips the transform runs through govips first and
// falls back to imaging on any failure.
package media
