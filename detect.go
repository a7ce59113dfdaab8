package gpr

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Container format names returned by DetectFormat.
const (
	FormatGPR = "gpr"
	FormatDNG = "dng"
	FormatRAW = "raw"
	FormatPPM = "ppm"
	FormatJPG = "jpg"
)

var extensionFormats = map[string]string{
	".gpr":  FormatGPR,
	".dng":  FormatDNG,
	".raw":  FormatRAW,
	".ppm":  FormatPPM,
	".jpg":  FormatJPG,
	".jpeg": FormatJPG,
}

// DetectFormat sniffs the container format of the file at path. The file
// magic wins over the extension; GPR and DNG share the TIFF magic and are
// told apart by extension, defaulting to DNG. Unknown contents fail with
// *FormatError.
func DetectFormat(path string) (string, error) {
	const op = "detect_format"
	if err := ValidateInput(path); err != nil {
		return "", annotate(err, op, path, "")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", annotate(newFileError(path, CodeNone, "cannot open "+path+": "+err.Error()), op, path, "")
	}
	defer f.Close()

	head := make([]byte, 4)
	n, _ := f.Read(head)
	head = head[:n]
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case bytes.HasPrefix(head, []byte{'I', 'I', 42, 0}), bytes.HasPrefix(head, []byte{'M', 'M', 0, 42}):
		if ext == ".gpr" {
			return FormatGPR, nil
		}
		return FormatDNG, nil
	case bytes.HasPrefix(head, []byte{0xFF, 0xD8}):
		return FormatJPG, nil
	case bytes.HasPrefix(head, []byte("P6")), bytes.HasPrefix(head, []byte("P5")):
		return FormatPPM, nil
	}

	// Planar RAW has no magic; trust the extension for it and anything
	// else we recognize by name.
	if format, ok := extensionFormats[ext]; ok {
		return format, nil
	}
	return "", annotate(newFormatError(ext, "cannot determine format of "+path), op, path, "")
}
