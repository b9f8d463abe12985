// Package imaging prepares lot photographs for detection and renders
// results for review.
//
// It covers four concerns:
//   - Loading: ImageCache decodes PNG, JPEG and GIF files once per path;
//     Decode handles uploaded bytes.
//   - Preprocessing: Variants produces the enhanced (CLAHE on CIE-Lab
//     lightness followed by a brightening gamma) and low-contrast (darkening
//     gamma) versions that detection runs on.
//   - Edges: EdgeMap is a Canny edge detector used by the contour detector.
//   - Presentation: Overlay draws zones and detections, CropZone cuts out a
//     single spot.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left, X increasing
// rightward and Y downward. For regions, (x1,y1) is inclusive and (x2,y2)
// exclusive.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless
// and never modify their input image.
package imaging
