package gpr

import (
	"bytes"
	"image/jpeg"

	"github.com/nfnt/resize"
)

// ExtractPreview returns a copy of the JPEG preview embedded in a GPR
// file's parameter record. Files without a preview fail with *FormatError.
func ExtractPreview(inputPath string) ([]byte, error) {
	const op = "extract_preview"
	var preview []byte
	err := withParsedParameters(op, inputPath, func(p *Parameters, parsed bool) error {
		if !parsed || p.PreviewImage.JPGPreview.Empty() {
			return newFormatError("jpg", "no embedded preview in "+inputPath)
		}
		preview = append([]byte(nil), p.PreviewImage.JPGPreview.Data...)
		return nil
	})
	if err != nil {
		return nil, annotate(err, op, inputPath, "")
	}
	return preview, nil
}

// WritePreview extracts the embedded preview and writes it to outputPath.
// A maxWidth > 0 narrower than the preview downscales it, keeping the
// aspect ratio.
func WritePreview(inputPath, outputPath string, maxWidth int) error {
	const op = "write_preview"
	preview, err := ExtractPreview(inputPath)
	if err != nil {
		return err
	}

	if maxWidth > 0 {
		img, err := jpeg.Decode(bytes.NewReader(preview))
		if err != nil {
			return annotate(newFormatError("jpg", "embedded preview is not decodable JPEG: "+err.Error()),
				op, inputPath, outputPath)
		}
		if img.Bounds().Dx() > maxWidth {
			img = resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
			var out bytes.Buffer
			if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 90}); err != nil {
				return annotate(newFormatError("jpg", "cannot re-encode preview: "+err.Error()),
					op, inputPath, outputPath)
			}
			preview = out.Bytes()
		}
	}

	buf := Buffer{Data: preview}
	if err := WriteFile(&buf, outputPath); err != nil {
		return annotate(err, op, inputPath, outputPath)
	}
	return nil
}
