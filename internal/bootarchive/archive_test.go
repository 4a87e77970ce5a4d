package bootarchive

import (
	"archive/tar"
	"bytes"
	"testing"
)

func buildTar(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, data := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write(data); err != nil {
			t.Fatalf("write data: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	return buf.Bytes()
}

func TestParseRoundTrip(t *testing.T) {
	raw := buildTar(t, map[string][]byte{
		"actors/shell.wasm": {1, 2, 3, 4},
		"actors/vfs.wasm":   {5, 6},
	})
	a, err := parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, ok := a.Get("actors/shell.wasm")
	if !ok {
		t.Fatalf("expected actors/shell.wasm present")
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected bytes: %v", got)
	}
	if len(a.Names()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(a.Names()))
	}
	if _, ok := a.Get("nope"); ok {
		t.Fatalf("expected missing entry to report ok=false")
	}
}
