//go:build !linux && !darwin && !windows

package inspect

// New constructs the platform process inspector. Other unixes carry a
// BSD-style ps, so the listing backend serves them too.
func New(classifier Classifier) Inspector {
	return newPSInspector(classifier)
}
