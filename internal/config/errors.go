package config

import "fmt"

// LoadError is returned when the config file is missing, malformed or
// invalid. It is fatal at startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("config load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// WriteError is returned when persisting fails. The in-memory config stays
// authoritative until the next successful write.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("config write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
