// Package abi implements the host side of the guest memory convention:
// buffers cross the boundary as a packed i64 holding a 32-bit pointer in the
// high half and a 32-bit length in the low half, and guests export
// allocate(size) and deallocate(ptr, size) for the host to manage them.
package abi

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// PtrHighBits is the shift of the pointer within a packed value.
const PtrHighBits = 32

// Guest export names.
const (
	ExportAllocate   = "allocate"
	ExportDeallocate = "deallocate"
	ExportInitialize = "_initialize"
)

// Errors reported for guest memory operations.
var (
	ErrMissingExport = errors.New("abi: guest does not export required function")
	ErrNullPointer   = errors.New("abi: null pointer with non-zero length")
	ErrOutOfBounds   = errors.New("abi: access outside guest memory")
	ErrNoMemory      = errors.New("abi: guest has no exported memory")
)

// PackPtrLen packs a pointer and length into a single uint64.
// Panics if ptr is 0 and length > 0, indicating an invalid state.
func PackPtrLen(ptr, length uint32) uint64 {
	if ptr == 0 && length > 0 {
		panic(fmt.Sprintf("abi: invalid pack - null pointer (0x0) with non-zero length (%d)", length))
	}
	return (uint64(ptr) << PtrHighBits) | uint64(length)
}

// UnpackPtrLen unpacks a value received from a guest. Guests are untrusted,
// so a null pointer with a length is reported instead of panicking.
func UnpackPtrLen(packed uint64) (ptr, length uint32, err error) {
	ptr = uint32(packed >> PtrHighBits) //nolint:gosec // G115: packed format stores 32-bit values
	length = uint32(packed)             //nolint:gosec // G115: packed format stores 32-bit values
	if ptr == 0 && length > 0 {
		return 0, 0, fmt.Errorf("%w (%d bytes)", ErrNullPointer, length)
	}
	return ptr, length, nil
}

// Guest wraps an instantiated module that follows the allocation convention.
// A module instance is not safe for concurrent calls; callers serialize.
type Guest struct {
	mod        api.Module
	allocate   api.Function
	deallocate api.Function
}

// NewGuest checks that mod exports memory, allocate and deallocate.
func NewGuest(mod api.Module) (*Guest, error) {
	if mod.Memory() == nil {
		return nil, ErrNoMemory
	}
	g := &Guest{
		mod:        mod,
		allocate:   mod.ExportedFunction(ExportAllocate),
		deallocate: mod.ExportedFunction(ExportDeallocate),
	}
	if g.allocate == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, ExportAllocate)
	}
	if g.deallocate == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingExport, ExportDeallocate)
	}
	return g, nil
}

// Module returns the wrapped module.
func (g *Guest) Module() api.Module {
	return g.mod
}

// Write allocates guest memory, copies data into it and returns the packed
// pointer and length. Empty data packs to 0 without allocating.
func (g *Guest) Write(ctx context.Context, data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	res, err := g.allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("abi: allocate(%d): %w", len(data), err)
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("abi: allocate(%d) returned no result", len(data))
	}
	ptr := uint32(res[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit
	if ptr == 0 {
		return 0, fmt.Errorf("abi: allocate(%d) returned a null pointer", len(data))
	}
	if !g.mod.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("%w: write %d bytes at 0x%x", ErrOutOfBounds, len(data), ptr)
	}
	return PackPtrLen(ptr, uint32(len(data))), nil //nolint:gosec // G115: bounded by the caller's payload limit
}

// Read copies the buffer described by packed out of guest memory.
func (g *Guest) Read(packed uint64) ([]byte, error) {
	ptr, length, err := UnpackPtrLen(packed)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}
	view, ok := g.mod.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("%w: read %d bytes at 0x%x", ErrOutOfBounds, length, ptr)
	}
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

// Free hands a buffer back to the guest allocator. Null buffers are ignored.
func (g *Guest) Free(ctx context.Context, packed uint64) error {
	ptr, length, err := UnpackPtrLen(packed)
	if err != nil || ptr == 0 {
		return err
	}
	if _, err := g.deallocate.Call(ctx, uint64(ptr), uint64(length)); err != nil {
		return fmt.Errorf("abi: deallocate(0x%x, %d): %w", ptr, length, err)
	}
	return nil
}
