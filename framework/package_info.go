// Package framework contains the test execution engine that the API test
// suites run on, independent of what is being tested.
//
// The general model is:
//
// 1. There is a notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a test identifier, to
// use standard testify assertions, and to accumulate success/failure results.
//
// 2. Test selection is controlled by regex filters supplied on the command
// line, applied to each level of the test path.
//
// 3. Progress and results are delivered to pluggable TestLogger
// implementations (console output and report files live in the reporting
// package).
//
// The domain-specific code that knows what is being tested is responsible for
// providing the target service, the HTTP traffic, and a domain-specific test
// API on top of the test context.
package framework
