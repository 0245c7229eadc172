//go:build darwin

package inspect

// New constructs the platform process inspector.
func New(classifier Classifier) Inspector {
	return newPSInspector(classifier)
}
