package assets

import (
	"errors"
	"fmt"
)

var (
	ErrPartitionOverflow = errors.New("assets: blob exceeds partition size")
	ErrNameCollision     = errors.New("assets: two sources map to the same asset name")
	ErrNoAssets          = errors.New("assets: no assets to pack")
)

// PartitionAlign is the flash erase granularity recommended sizes are
// rounded to.
const PartitionAlign = 4096

// PartitionError reports a blob that does not fit its partition.
type PartitionError struct {
	Size        int64
	Capacity    int64
	Recommended int64
}

func newPartitionError(size, capacity int64) *PartitionError {
	return &PartitionError{
		Size:        size,
		Capacity:    capacity,
		Recommended: (size + PartitionAlign - 1) / PartitionAlign * PartitionAlign,
	}
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("assets: blob is %d bytes (0x%X) but the partition holds %d bytes (0x%X); resize the partition to at least 0x%X",
		e.Size, e.Size, e.Capacity, e.Capacity, e.Recommended)
}

func (e *PartitionError) Unwrap() error { return ErrPartitionOverflow }
