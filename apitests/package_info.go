// Package apitests contains the test suites the harness runs against a
// target API: smoke checks, CRUD coverage for users, products, and orders,
// security checks, and cross-endpoint integration flows.
//
// The tests are written against the T type in this package, which plays the
// role of testing.T outside the Go test runner. The suites assume a target
// that implements the commerce API contract; the mockservice package is the
// reference implementation and the default target.
package apitests
