package storefront

import (
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// InspectLocalFile checks what the image picker handed over: the file must
// exist, be non-empty and sniff as an image. An empty declaredMime is filled
// from the sniffed type; a declared type from another family is rejected.
func InspectLocalFile(path, declaredMime string) (LocalFile, error) {
	if strings.TrimSpace(path) == "" {
		return LocalFile{}, ValidationError("logo path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, &Error{Kind: KindValidationFailed, Message: "logo file is not readable", Err: err}
	}
	if info.IsDir() {
		return LocalFile{}, ValidationError("logo path %q is a directory", path)
	}
	if info.Size() == 0 {
		return LocalFile{}, ValidationError("logo file %q is empty", path)
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return LocalFile{}, &Error{Kind: KindValidationFailed, Message: "logo file could not be read", Err: err}
	}
	sniffed := detected.String()
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	if !strings.HasPrefix(sniffed, "image/") {
		return LocalFile{}, ValidationError("logo file %q is %s, not an image", path, sniffed)
	}

	declared := strings.ToLower(strings.TrimSpace(declaredMime))
	switch {
	case declared == "":
		declared = sniffed
	case !strings.HasPrefix(declared, "image/"):
		return LocalFile{}, ValidationError("declared mime type %q is not an image", declaredMime)
	case !detected.Is(declared) && declared != sniffed:
		return LocalFile{}, ValidationError("declared mime type %q does not match file content %s", declaredMime, sniffed)
	}
	return LocalFile{Path: path, MimeType: declared, Size: info.Size()}, nil
}
