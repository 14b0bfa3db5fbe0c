// Package utils holds small helpers shared by the transport, decoder and
// adapter packages: pointer construction, bounded string previews for log
// and error messages, and logged resource cleanup.
package utils
