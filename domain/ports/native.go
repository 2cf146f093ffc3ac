package ports

import (
	"context"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
)

// NativeInvoker is the boundary primitive behind foreign targets.
// Adapters return *errors.NativeCallError on failure.
type NativeInvoker interface {
	// Invoke calls the function behind handle with encoded arguments and
	// returns the encoded results.
	Invoke(ctx context.Context, handle entities.Handle, args []byte) ([]byte, error)

	// Release gives the handle back to the boundary layer. Releasing an
	// unknown or already released handle is not an error.
	Release(ctx context.Context, handle entities.Handle) error
}
