// Package source locates configuration documents and reports cheap change markers for them
package source

import (
	"context"
	"io"

	"github.com/KOMKZ/go-yogan-logconf/errcode"
)

// Marker identifies one revision of a source's content. Equal markers mean
// unchanged content; the format is private to each Source.
type Marker string

// Source is a configuration document that can be re-read
type Source interface {
	// Identity human readable location, used in statuses
	Identity() string
	// Marker returns the current revision marker without reading the content
	Marker(ctx context.Context) (Marker, error)
	// Open returns the current content
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Snapshot is a source together with the marker observed before its content was read.
// A change landing between the marker read and the content read therefore shows up
// as a different marker on the next check.
type Snapshot struct {
	Source Source
	Marker Marker
}

// Take reads the marker of src
func Take(ctx context.Context, src Source) (Snapshot, error) {
	m, err := src.Marker(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Source: src, Marker: m}, nil
}

// Valid reports whether the snapshot points at a source
func (s Snapshot) Valid() bool {
	return s.Source != nil
}

// Identity of the underlying source, empty for an invalid snapshot
func (s Snapshot) Identity() string {
	if s.Source == nil {
		return ""
	}
	return s.Source.Identity()
}

// ReadAll reads the whole content of src
func ReadAll(ctx context.Context, src Source) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errcode.ErrSourceUnreadable.Wrapf(err, "read %s", src.Identity())
	}
	return data, nil
}
