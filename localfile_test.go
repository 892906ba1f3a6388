package storefront

import (
	"os"
	"path/filepath"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestInspectLocalFile(t *testing.T) {
	png := writeFile(t, "logo.png", pngHeader)

	file, err := InspectLocalFile(png, "image/png")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if file.MimeType != "image/png" || file.Size != int64(len(pngHeader)) {
		t.Fatalf("unexpected file %+v", file)
	}

	file, err = InspectLocalFile(png, "")
	if err != nil || file.MimeType != "image/png" {
		t.Fatalf("expected sniffed mime, got %+v %v", file, err)
	}
}

func TestInspectLocalFileRejects(t *testing.T) {
	png := writeFile(t, "logo.png", pngHeader)
	text := writeFile(t, "notes.txt", []byte("hello world"))
	empty := writeFile(t, "empty.png", nil)

	cases := []struct {
		name string
		path string
		mime string
	}{
		{name: "missing path", path: "", mime: "image/png"},
		{name: "does not exist", path: filepath.Join(t.TempDir(), "nope.png"), mime: "image/png"},
		{name: "empty", path: empty, mime: "image/png"},
		{name: "not an image", path: text, mime: "image/png"},
		{name: "declared non image", path: png, mime: "text/plain"},
		{name: "declared mismatch", path: png, mime: "image/jpeg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := InspectLocalFile(tc.path, tc.mime); !IsKind(err, KindValidationFailed) {
				t.Fatalf("expected validation failure, got %v", err)
			}
		})
	}
}
