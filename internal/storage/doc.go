// Package storage opens the bun database used by the bun-backed repositories
// and creates the schema they expect.
package storage
