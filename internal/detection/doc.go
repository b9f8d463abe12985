// Package detection turns raw object-detector output into the deduplicated
// vehicle list consumed by the occupancy resolver.
//
// # Pipeline
//
// A single lot image is rendered twice by the preprocessing stage: once with
// local contrast enhancement (dark vehicles stand out) and once with an
// inverse gamma (light vehicles stand out against bright pavement). Each
// rendering goes through a Detector independently:
//
//  1. Detect: each variant yields a list of geometry.Box values
//  2. Merge: the union of both lists is reduced by greedy non-max suppression
//  3. Label: surviving boxes are truncated to integers, confidences rounded to
//     two decimals, and class ids resolved through a Labels table
//
// Run performs all three steps and runs the variants concurrently.
//
// # Detectors
//
// Two Detector implementations are provided:
//
//   - InferenceClient: posts each rendering to an external model server over
//     HTTP. The client owns the connection settings and is built once at
//     startup, then shared by every run.
//   - ContourDetector: an offline fallback that boxes closed edge contours.
//     Useful for tests and for lots without an inference service; far less
//     accurate than a trained model.
//
// # Thresholds
//
// Options carries the confidence threshold (default 0.1) and the IoU
// threshold (default 0.4). Both are passed to the detector and the IoU
// threshold also drives Merge. Neither is hardcoded policy.
//
// # Error Handling
//
// Detector failures wrap ErrDetector. Run fails if either variant fails, so
// callers never resolve occupancy against a partial detection set. Merge and
// the geometry it relies on never fail.
package detection
