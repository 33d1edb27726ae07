// Package pipeline orchestrates one audit run.
//
// Stages, in order:
//   - Collect: walk the roots (never following directory links) and keep
//     every symlink, broken ones included.
//   - Phase 1: health.Classifier on a bounded worker pool.
//   - Phase 2: probe.Validator, sequential, over OK media files.
//   - Aggregate: concatenate both problem lists into a ProblemSet.
//   - Remediate (real mode only), then notify the library services.
//
// RunStats is the only state shared by Phase-1 workers.
package pipeline
