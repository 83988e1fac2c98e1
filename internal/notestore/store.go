// Package notestore persists the note collection that the galaxy is built from.
package notestore

// NoteStore defines the interface for the ordered note collection.
type NoteStore interface {
	// Initialize initializes the store with configuration options.
	Initialize(dbPath string) error

	// Close closes the store and releases any resources.
	Close() error

	// Append adds notes after the existing ones and returns the new total.
	Append(notes []string) (int, error)

	// List returns every note in insertion order.
	List() ([]string, error)

	// Count returns the number of stored notes.
	Count() (int, error)

	// Clear removes every note and returns how many were removed.
	Clear() (int, error)
}
