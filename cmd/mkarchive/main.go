// Command mkarchive packs a directory of compiled guest .wasm modules into
// the USTAR boot archive internal/bootarchive reads at startup. Each file's
// base name becomes its archive entry name, matching the index vfsactor
// uses to resolve a LabelReadInto request, and archive order is the
// directory listing's own sorted order, which is also what os.ReadDir
// returns.
package main

import (
	"archive/tar"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mkarchive:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		srcDir = flag.String("src", "", "directory of .wasm guest modules to pack")
		out    = flag.String("out", "boot.tar", "output archive path")
	)
	flag.Parse()

	if *srcDir == "" {
		return fmt.Errorf("-src is required")
	}

	entries, err := os.ReadDir(*srcDir)
	if err != nil {
		return fmt.Errorf("read %s: %w", *srcDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wasm") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return fmt.Errorf("no .wasm files found under %s", *srcDir)
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	defer f.Close()

	tw := tar.NewWriter(f)
	for _, name := range names {
		path := filepath.Join(*srcDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header for %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		fmt.Printf("packed %s (%d bytes)\n", name, len(data))
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	fmt.Printf("wrote %s with %d entries\n", *out, len(names))
	return nil
}
