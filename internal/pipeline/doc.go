// Package pipeline sequences the 2D tile-alignment stages over a workspace
// directory. The heavy lifting (SIFT extraction, matching, optimization,
// rendering) happens in an external jar; this package owns stage ordering,
// artifact placement, workspace locking, and failure propagation. Stages
// never run concurrently, are never retried, and the first failure stops the
// run with earlier artifacts left in place.
package pipeline
