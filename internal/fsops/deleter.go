package fsops

// Deleter abstracts the mutating half of the engine.
// Enables tests to prove a dry run never reaches the filesystem.
type Deleter interface {
	// RemoveAll deletes path and everything below it. A missing path is not an error.
	RemoveAll(path string) error
}
