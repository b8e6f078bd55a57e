// Package keyid parses and formats key identifier strings.
//
// A key identifier names a key within a backend container:
//
//	[hsm:]container/keys/name[/version]
//
// The "hsm:" prefix marks a key held by a dedicated hardware-backed
// cluster. The version segment is optional; an identifier without it
// refers to the latest version of the key.
package keyid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKeyID is returned when an identifier string does not match
// the expected [hsm:]container/keys/name[/version] shape.
var ErrInvalidKeyID = errors.New("invalid key identifier")

const hsmPrefix = "hsm:"

// ID is a parsed key identifier.
type ID struct {
	// HSM is true when the key lives on a dedicated hardware-backed cluster.
	HSM bool

	// Container is the vault (or HSM) the key belongs to.
	Container string

	// Name is the key name within the container.
	Name string

	// Version is the key version, or "" for latest.
	Version string
}

// Parse parses an identifier string into an ID.
func Parse(s string) (*ID, error) {
	id := &ID{}

	rest := s
	if strings.HasPrefix(rest, hsmPrefix) {
		id.HSM = true
		rest = strings.TrimPrefix(rest, hsmPrefix)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKeyID, s)
	}
	if parts[1] != "keys" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKeyID, s)
	}

	id.Container = parts[0]
	id.Name = parts[2]
	if len(parts) == 4 {
		id.Version = parts[3]
	}

	if id.Container == "" || id.Name == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKeyID, s)
	}

	return id, nil
}

// String formats the ID back into its identifier string.
func (id *ID) String() string {
	var b strings.Builder
	if id.HSM {
		b.WriteString(hsmPrefix)
	}
	b.WriteString(id.Container)
	b.WriteString("/keys/")
	b.WriteString(id.Name)
	if id.Version != "" {
		b.WriteString("/")
		b.WriteString(id.Version)
	}
	return b.String()
}
