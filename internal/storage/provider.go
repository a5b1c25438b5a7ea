// Package storage defines the shard file-system abstraction.
package storage

import "github.com/starford/lorekeeper/internal/models"

// Provider is the interface for shard file operations.
type Provider interface {
	// List returns metadata for every "<year>.json" shard under the root.
	List() ([]models.ShardInfo, error)
	// Read returns the raw bytes of the file at name (relative to root).
	Read(name string) ([]byte, error)
	// Write atomically replaces the file at name (relative to root).
	Write(name string, content []byte) error
	// Root returns the absolute directory backing this provider.
	Root() string
}
