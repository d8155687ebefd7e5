// Package errors provides the structured error taxonomy used by simhost.
//
// # Error Categories
//
//   - Fatal: the process drains its exit actions and exits with status 1
//   - Config: configuration or input rejected at startup
//   - Internal: unexpected errors indicating bugs
//
// # Error Codes
//
//   - FATAL: explicit unrecoverable application error
//   - SIGNAL: fatal OS signal converted to an application error
//   - REGISTRATION: exit action could not be registered
//   - PANIC: panic recovered by the host
//   - INVALID_CONFIG, INVALID_INPUT, UNSUPPORTED, INTERNAL
//
// # Usage
//
//	err := errors.Fatal("map lump missing", errors.WithMetadata("lump", "E1M1"))
//
//	if errors.IsFatal(err) {
//	    rt.Fatal(err)
//	}
//
// Errors marshal to JSON so the fatal path can record them in telemetry.
package errors
