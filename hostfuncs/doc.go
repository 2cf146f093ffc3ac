// Package hostfuncs provides building blocks for functions implemented in Go:
// invocation context, middleware, the value codec adapter that turns a
// local function into a byte handler, immutable handler libraries and the
// demo function bundle. Nothing here depends on a WASM runtime.
package hostfuncs
