// Package render wraps the external alignment jar. Feature extraction,
// feature matching, transform optimization, and rendering all live inside the
// jar; this client only builds the java command line, launches the process,
// and reports its exit status.
package render
