package persistence

import (
	"fmt"
	"os"
)

// WriteFile encodes v through r and writes it to filename with perm,
// truncating any existing content.
func (r *Registry) WriteFile(filename string, v interface{}, perm os.FileMode) error {
	data, err := r.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, perm); err != nil {
		return fmt.Errorf("persistence: writing %s: %w", filename, err)
	}
	return nil
}

// ReadFile reads filename and decodes it through r.
func (r *Registry) ReadFile(filename string) (interface{}, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("persistence: reading %s: %w", filename, err)
	}
	return r.Decode(data)
}
