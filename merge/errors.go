package merge

import (
	"errors"
	"fmt"
)

// ErrEmptyLayerList no layers were supplied to a merge call.
var ErrEmptyLayerList = errors.New("merge: empty layer list")

// ResampleError a layer's coordinate reference could not be projected onto
// the target grid. Fatal for the merge call; the caller may drop the layer
// and retry.
type ResampleError struct {
	Layer string
	Err   error
}

func (e *ResampleError) Error() string {
	return fmt.Sprintf("merge: resampling layer %q: %v", e.Layer, e.Err)
}

func (e *ResampleError) Unwrap() error { return e.Err }
