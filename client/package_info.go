// Package client is the HTTP wrapper all suite traffic goes through. It
// keeps the surface thin: base URL joining, default and per-request headers,
// fully buffered responses with lazy JSON parsing, and failure classification
// that plugs into the retry package's policies. Every request is rendered to
// the debug log as a curl command with credential headers masked.
package client
