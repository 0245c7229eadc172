//go:build windows

package inspect

import "context"

// unavailableInspector degrades every query to the empty result. Windows
// process supervision is not implemented; callers stay correct because the
// contract already tolerates a transiently unavailable process table.
type unavailableInspector struct{}

func (unavailableInspector) Inspect(ctx context.Context, pid int) (Record, error) {
	return Record{}, ErrNotFound
}

func (unavailableInspector) List(ctx context.Context) []Record {
	return nil
}

// New constructs the platform process inspector.
func New(classifier Classifier) Inspector {
	return unavailableInspector{}
}
