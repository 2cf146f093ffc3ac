// Package wazero implements the foreign-function boundary on top of the
// wazero WebAssembly runtime.
//
// A Runtime owns the wazero runtime, WASI, and a host module ("frontrow_host")
// that exports log_message plus, optionally, a hostfuncs.HandlerRegistry so
// guests can call back into host functions. An Invoker binds guest exports
// to handles and serves them as foreign targets of the call bridge.
//
// # Guest convention
//
// Buffers cross the boundary as a packed i64: pointer in the high 32 bits,
// length in the low 32 bits. Guests export memory, allocate(size) and
// deallocate(ptr, size). A callable export has the signature (i64) -> i64:
// it receives the encoded arguments and returns the encoded results, or 0
// for a null response.
//
// # Basic Usage
//
//	rt, err := wazero.NewRuntime(ctx, wazero.WithCallbacks(registry))
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Instantiate(ctx, "demo", wasmBytes)
//	inv := wazero.NewInvoker()
//	handle, err := inv.Bind(mod, "multiply")
//	out, err := inv.Invoke(ctx, handle, encodedArgs)
package wazero
