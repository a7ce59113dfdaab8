package gpr

// Capacities of the fixed-width EXIF string fields, terminator included.
// Assignments through the setters truncate to capacity-1 bytes.
const (
	CameraMakeSize       = 32
	CameraModelSize      = 32
	CameraSerialSize     = 32
	SoftwareVersionSize  = 32
	UserCommentSize      = 64
	ImageDescriptionSize = 64
)

// Rational is a non-negative rational value. A zero denominator denotes an
// absent value.
type Rational struct {
	Numerator   uint32
	Denominator uint32
}

// Float returns the quotient, or 0 when the value is absent.
func (r Rational) Float() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// Valid reports whether the rational carries a value.
func (r Rational) Valid() bool { return r.Denominator != 0 }

// SignedRational is a signed rational value, used for exposure bias.
type SignedRational struct {
	Numerator   int32
	Denominator int32
}

func (r SignedRational) Float() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

func (r SignedRational) Valid() bool { return r.Denominator != 0 }

// DateTime is a capture timestamp split into calendar fields.
type DateTime struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// GPSInfo mirrors the codec's GPS record. When Valid is false the other
// fields are meaningless and must not be projected.
type GPSInfo struct {
	Valid bool

	LatitudeRef  [2]byte // "N" or "S"
	Latitude     [3]Rational
	LongitudeRef [2]byte // "E" or "W"
	Longitude    [3]Rational
	AltitudeRef  byte
	Altitude     Rational
	TimeStamp    [3]Rational

	Satellites       [4]byte
	Status           [2]byte
	MeasureMode      [2]byte
	MapDatum         [8]byte
	ProcessingMethod [32]byte
	AreaInformation  [32]byte
	DateStamp        [12]byte

	Speed        Rational
	Track        Rational
	ImgDirection Rational
	DestBearing  Rational
	DestDistance Rational
}

// EXIFInfo mirrors the codec's EXIF record: fixed-width strings, rational
// capture settings, enumerated codes kept as their wire integers.
type EXIFInfo struct {
	CameraMake       [CameraMakeSize]byte
	CameraModel      [CameraModelSize]byte
	CameraSerial     [CameraSerialSize]byte
	SoftwareVersion  [SoftwareVersionSize]byte
	UserComment      [UserCommentSize]byte
	ImageDescription [ImageDescriptionSize]byte

	ExposureTime Rational
	FStopNumber  Rational
	Aperture     Rational
	FocalLength  Rational
	ExposureBias SignedRational
	DigitalZoom  Rational

	ISOSpeedRating        uint16
	FocalLengthIn35mmFilm uint16
	Saturation            uint16

	ExposureProgram  uint16
	MeteringMode     uint16
	LightSource      uint16
	Flash            uint16
	Sharpness        uint16
	GainControl      uint16
	Contrast         uint16
	SceneCaptureType uint16
	ExposureMode     uint16
	WhiteBalance     uint16
	SceneType        uint16
	FileSource       uint16
	SensingMethod    uint16

	DateTimeOriginal  DateTime
	DateTimeDigitized DateTime

	GPSInfo GPSInfo
}

// PreviewImage is the embedded JPEG preview carried by the parameter record.
type PreviewImage struct {
	JPGPreview Buffer
	Width      int
	Height     int
}

// ProfileInfo carries the color profile subset the binding models.
type ProfileInfo struct {
	WhiteBalanceGains [3]float64
}

// TuningInfo carries the camera tuning subset the binding models.
type TuningInfo struct {
	Orientation      uint16
	StaticBlackLevel [4]uint16
	NoiseScale       float64
}

// Parameters mirrors the codec's parameter record. A record is initialized
// with Codec.ParametersSetDefaults, used for exactly one operation, and
// destroyed exactly once; it owns the nested preview and GPMF buffers.
type Parameters struct {
	InputWidth  int
	InputHeight int
	InputPitch  int

	FastEncoding  bool
	ComputeMD5Sum bool
	EnablePreview bool

	PreviewImage PreviewImage
	GPMFPayload  Buffer

	EXIFInfo    EXIFInfo
	ProfileInfo ProfileInfo
	TuningInfo  TuningInfo
}

// Destroy releases every nested owned buffer through free and resets them.
// It must be called once per successfully defaulted record, on every exit
// path, and is a no-op on a record whose buffers are already empty.
func (p *Parameters) Destroy(free FreeFunc) {
	releaseWith(free, &p.PreviewImage.JPGPreview)
	releaseWith(free, &p.GPMFPayload)
}

func releaseWith(free FreeFunc, b *Buffer) {
	if b.Data == nil {
		return
	}
	free(b.Data)
	b.Data = nil
}

// cstring interprets a fixed-width field as a NUL-terminated string.
func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// setCString stores s into a fixed-width field, truncating to capacity-1
// and NUL-terminating.
func setCString(dst []byte, s string) {
	n := copy(dst[:len(dst)-1], s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
