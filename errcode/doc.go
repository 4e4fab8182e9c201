// Package errcode provides a toolkit for defining and assigning error
// codes to protocol and API responses. An ErrorCode is identified globally
// by a string value, typically all uppercase, by convention. When an
// `ErrorCode` is registered, a value unique to the process is assigned,
// which can be used for identity tests.
//
// The package provides central registration and querying. Use of this
// package is defined by the following flow:
//
//   - Each error is registered with the errcode package via the `Register()`
//     function. The `Register()` function takes a `group` name and an
//     `ErrorDescriptor` structure. The `group` name allows for errors to be
//     associated with a particular component, or any other grouping
//     mechanism that may have meaning to the code registering the error.
//     The `ErrorDescriptor` describes the error itself. The `Register()`
//     function returns an `ErrorCode` that uniquely identifies the
//     registered error.
//
//   - Once an error is registered, the returned `ErrorCode` can be used just
//     like any other golang `error` type.
//
//   - If a particular error needs additional information or processing, the
//     `WithArgs()` and `WithDetail()` functions are available. `WithArgs()`
//     lets the code generating the error specify the substitution values of
//     the `%s`/`%q` variables in the error's message. `WithDetail()` allows
//     the specification of any additional information that may need to be
//     provided to the caller for this particular error. Both functions
//     return a new `Error` value, leaving the original `ErrorCode` untouched.
//
// The package consists of three main resource types:
//
//   - ErrorCode: a unique (numerical) identifier for a particular error
//     registered with the errcode package. This value is returned by the
//     Register function.
//
//   - ErrorDescriptor: describes a single error condition, with a Code, a
//     Value (stable string identifier), a Message (human-readable, may
//     contain printf-style substitutions consumed by WithArgs), a
//     Description, and an HTTPStatusCode used only when the error is
//     surfaced over an administrative HTTP surface.
//
//   - Error: extends an ErrorCode with additional substitution args and
//     detail.
package errcode
