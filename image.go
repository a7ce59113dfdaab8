package gpr

import (
	"encoding/binary"
	"fmt"
)

// DType selects the element type of a projected pixel array.
type DType string

const (
	DTypeUint16  DType = "uint16"
	DTypeFloat32 DType = "float32"
)

// ImageInfo describes the decoded sensor plane of a GPR or DNG file.
type ImageInfo struct {
	Width    int
	Height   int
	Channels int
	Format   string
	DataSize int64
}

func (i ImageInfo) String() string {
	return fmt.Sprintf("ImageInfo(width=%d, height=%d, channels=%d, format=%q, data_size=%d)",
		i.Width, i.Height, i.Channels, i.Format, i.DataSize)
}

// RawImage is a 2-D, C-contiguous, row-major view of the sensor plane.
// Exactly one of Uint16 and Float32 is populated, according to DType, with
// Height*Width elements.
type RawImage struct {
	Width  int
	Height int
	DType  DType

	Uint16  []uint16
	Float32 []float32
}

// Row16 returns row y of a uint16 image without copying.
func (im *RawImage) Row16(y int) []uint16 {
	return im.Uint16[y*im.Width : (y+1)*im.Width]
}

// Row32 returns row y of a float32 image without copying.
func (im *RawImage) Row32(y int) []float32 {
	return im.Float32[y*im.Width : (y+1)*im.Width]
}

// At16 returns the sample at (x, y) of a uint16 image.
func (im *RawImage) At16(x, y int) uint16 { return im.Uint16[y*im.Width+x] }

// At32 returns the sample at (x, y) of a float32 image.
func (im *RawImage) At32(x, y int) float32 { return im.Float32[y*im.Width+x] }

// GetImageInfo probes the container at inputPath for its sensor plane
// dimensions. GPR files share the DNG's TIFF structure, so both are probed
// by walking the IFD chain; a container without one fails with
// *FormatError.
func GetImageInfo(inputPath string) (ImageInfo, error) {
	const op = "get_image_info"
	if err := ValidateInput(inputPath); err != nil {
		return ImageInfo{}, annotate(err, op, inputPath, "")
	}

	// The probe is pure header work; it does not need the codec.
	alloc := GoAllocator()
	buf, err := ReadFile(inputPath, alloc)
	if err != nil {
		return ImageInfo{}, annotate(err, op, inputPath, "")
	}
	defer buf.Release(alloc)

	width, height, err := probeDimensions(buf.Data)
	if err != nil {
		return ImageInfo{}, annotate(err, op, inputPath, "")
	}
	return ImageInfo{
		Width:    width,
		Height:   height,
		Channels: 1,
		Format:   "uint16",
		DataSize: int64(width) * int64(height) * 2,
	}, nil
}

// GetRawImageData decodes the GPR at inputPath to its planar 16-bit form
// and projects it as a 2-D array. dtype selects uint16 samples as written
// by the codec or float32 samples normalized to [0, 1]. The returned array
// is Go-owned; the codec's buffer is always released by the driver.
func GetRawImageData(inputPath string, dtype DType) (*RawImage, error) {
	const op = "get_raw_image_data"

	// dtype is checked before any I/O happens.
	switch dtype {
	case DTypeUint16, DTypeFloat32:
	default:
		return nil, annotate(newParameterError("dtype",
			fmt.Sprintf("unsupported dtype %q; supported: uint16, float32", dtype)), op, inputPath, "")
	}

	info, err := GetImageInfo(inputPath)
	if err != nil {
		return nil, annotate(err, op, inputPath, "")
	}

	cv := convGPRToRAW
	cv.op = op

	var img *RawImage
	err = convertToBuffer(cv, inputPath, func(out *Buffer) error {
		need := info.Width * info.Height * 2
		if out.Size() < need {
			return newFormatError("raw", fmt.Sprintf(
				"decoded plane is %d bytes, need %d for %dx%d 16-bit samples",
				out.Size(), need, info.Width, info.Height))
		}
		img = projectPlane(out.Data, info.Width, info.Height, dtype)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// projectPlane copies the little-endian 16-bit plane into a Go-owned array.
func projectPlane(data []byte, width, height int, dtype DType) *RawImage {
	n := width * height
	img := &RawImage{Width: width, Height: height, DType: dtype}
	switch dtype {
	case DTypeFloat32:
		img.Float32 = make([]float32, n)
		for i := 0; i < n; i++ {
			s := binary.LittleEndian.Uint16(data[2*i:])
			img.Float32[i] = float32(s) / 65535.0
		}
	default:
		img.Uint16 = make([]uint16, n)
		for i := 0; i < n; i++ {
			img.Uint16[i] = binary.LittleEndian.Uint16(data[2*i:])
		}
	}
	return img
}
