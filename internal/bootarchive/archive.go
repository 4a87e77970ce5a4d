// Package bootarchive reads the USTAR boot archive that packs the guest
// actor WASM modules the kernel loads at startup (spec 4.I / supplemented
// feature grounded on the original kernel's fs/tar.rs). cmd/mkarchive
// writes these archives; nanokernd reads them.
package bootarchive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Record is one named entry's bytes, read fully into memory. Boot
// archives are small (a handful of guest modules), so there is no benefit
// to streaming entries lazily.
type Record struct {
	Name string
	Data []byte
}

// Archive is a boot archive's entries, indexed by name for O(1) lookup by
// the guest loader.
type Archive struct {
	order   []string
	records map[string]Record
}

// Load mmaps path read-only and parses it as a USTAR archive. mmap avoids
// a second full copy of the archive into the Go heap beyond what
// archive/tar itself buffers per entry; on platforms where mmap fails
// (e.g. the path is on a filesystem that does not support it) Load falls
// back to a plain read.
func Load(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return &Archive{records: make(map[string]Record)}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		data, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("bootarchive: read %s: %w", path, err)
		}
	} else {
		defer unix.Munmap(data)
	}

	return parse(bytes.NewReader(data))
}

func parse(r io.Reader) (*Archive, error) {
	tr := tar.NewReader(r)
	a := &Archive{records: make(map[string]Record)}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bootarchive: parse: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		buf := make([]byte, hdr.Size)
		if _, err := io.ReadFull(tr, buf); err != nil {
			return nil, fmt.Errorf("bootarchive: read entry %s: %w", hdr.Name, err)
		}
		a.order = append(a.order, hdr.Name)
		a.records[hdr.Name] = Record{Name: hdr.Name, Data: buf}
	}
	return a, nil
}

// Get returns the named entry's bytes, if present.
func (a *Archive) Get(name string) ([]byte, bool) {
	r, ok := a.records[name]
	if !ok {
		return nil, false
	}
	return r.Data, true
}

// Names returns every entry name, in archive order.
func (a *Archive) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}
