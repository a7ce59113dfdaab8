package gpr

// Image is a lightweight handle for one container file. It holds no open
// resources; every method runs a full, independent operation, so an Image
// can be kept around and reused freely.
type Image struct {
	path string
}

// OpenImage validates the file at path and returns a handle for it.
func OpenImage(path string) (*Image, error) {
	if err := ValidateInput(path); err != nil {
		return nil, annotate(err, "open_image", path, "")
	}
	return &Image{path: path}, nil
}

// Path returns the file the handle was opened on.
func (im *Image) Path() string { return im.path }

// Format sniffs the container format.
func (im *Image) Format() (string, error) { return DetectFormat(im.path) }

// Info probes the sensor plane dimensions.
func (im *Image) Info() (ImageInfo, error) { return GetImageInfo(im.path) }

// ToDNG converts the image to a DNG file at outputPath.
func (im *Image) ToDNG(outputPath string) error { return ConvertGPRToDNG(im.path, outputPath) }

// ToRAW decodes the image to a planar 16-bit RAW file at outputPath.
func (im *Image) ToRAW(outputPath string) error { return ConvertGPRToRAW(im.path, outputPath) }

// EXIF extracts the embedded EXIF record.
func (im *Image) EXIF(opts ...func(*ExtractOptions)) (map[string]any, error) {
	return ExtractEXIFMetadata(im.path, opts...)
}

// AsArray projects the sensor plane as a 2-D array.
func (im *Image) AsArray(dtype DType) (*RawImage, error) {
	return GetRawImageData(im.path, dtype)
}
