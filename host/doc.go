// Package host provides the call bridge between a driving loop and the
// functions a machine exposes.
//
// A Bridge owns a function registry. Functions are registered while the
// bridge is Initialized, either as local closures or as foreign functions
// reached through a handle issued by a boundary layer (see
// infrastructure/native and infrastructure/wazero). After Connect the
// registry is frozen and Invoke dispatches calls by name, checking the
// arguments against the declared parameters and the results against the
// declared returns. Shutdown drains in-flight calls and releases every
// foreign handle.
//
// The package also loads machine manifests: YAML documents that bind
// WebAssembly exports to typed foreign functions (see Loader and Executor).
package host
