package gpr

import (
	"fmt"
	"math"
)

// ModifyMetadata re-encodes a DNG (or GPR-parsed DNG source) with the given
// EXIF field updates applied. Unknown keys are ignored; known keys with a
// value of the wrong shape fail with *ParameterError before the codec runs.
// The output path is only created when the whole re-encode succeeds.
func ModifyMetadata(inputPath, outputPath string, updates map[string]any) error {
	cv := convDNGToDNG
	cv.op = "modify_metadata"
	return convertFile(cv, inputPath, outputPath, func(c Codec, a Allocator, in *Buffer, p *Parameters) error {
		// Parse failure is tolerated: updates then apply on top of the
		// defaulted record, same as the extractors.
		c.ParseMetadata(a, in, p)
		return applyUpdates(p, updates)
	})
}

// exifStrings maps update keys to their fixed-width destination fields.
func exifStrings(e *EXIFInfo) map[string][]byte {
	return map[string][]byte{
		"camera_make":       e.CameraMake[:],
		"camera_model":      e.CameraModel[:],
		"camera_serial":     e.CameraSerial[:],
		"software_version":  e.SoftwareVersion[:],
		"user_comment":      e.UserComment[:],
		"image_description": e.ImageDescription[:],
	}
}

// exifUints maps update keys to 16-bit unsigned fields. The three scalar
// settings and the enumerated codes share the same width; the codec is the
// validator of in-range enum values.
func exifUints(e *EXIFInfo) map[string]*uint16 {
	return map[string]*uint16{
		"iso_speed_rating":          &e.ISOSpeedRating,
		"focal_length_in_35mm_film": &e.FocalLengthIn35mmFilm,
		"saturation":                &e.Saturation,

		"exposure_program":   &e.ExposureProgram,
		"metering_mode":      &e.MeteringMode,
		"light_source":       &e.LightSource,
		"flash":              &e.Flash,
		"sharpness":          &e.Sharpness,
		"gain_control":       &e.GainControl,
		"contrast":           &e.Contrast,
		"scene_capture_type": &e.SceneCaptureType,
		"exposure_mode":      &e.ExposureMode,
		"white_balance":      &e.WhiteBalance,
		"scene_type":         &e.SceneType,
		"file_source":        &e.FileSource,
		"sensing_method":     &e.SensingMethod,
	}
}

func exifRationals(e *EXIFInfo) map[string]*Rational {
	return map[string]*Rational{
		"exposure_time_rational": &e.ExposureTime,
		"f_stop_number_rational": &e.FStopNumber,
		"aperture_rational":      &e.Aperture,
		"focal_length_rational":  &e.FocalLength,
		"digital_zoom_rational":  &e.DigitalZoom,
	}
}

func applyUpdates(p *Parameters, updates map[string]any) error {
	e := &p.EXIFInfo
	strs := exifStrings(e)
	uints := exifUints(e)
	rats := exifRationals(e)

	for key, value := range updates {
		switch {
		case strs[key] != nil:
			s, ok := value.(string)
			if !ok {
				return newParameterError(key, fmt.Sprintf("%s requires a string, got %T", key, value))
			}
			setCString(strs[key], s)

		case uints[key] != nil:
			n, ok := asInt(value)
			if !ok {
				return newParameterError(key, fmt.Sprintf("%s requires an integer, got %T", key, value))
			}
			if n < 0 || n > math.MaxUint16 {
				return newParameterError(key, fmt.Sprintf("%s value %d out of 16-bit unsigned range", key, n))
			}
			*uints[key] = uint16(n)

		case rats[key] != nil:
			num, den, err := asRationalPair(key, value)
			if err != nil {
				return err
			}
			*rats[key] = Rational{Numerator: num, Denominator: den}

		case key == "exposure_bias_rational":
			num, den, err := asRationalPair(key, value)
			if err != nil {
				return err
			}
			// The stored pair is signed; values past MaxInt32 would wrap.
			if num > math.MaxInt32 || den > math.MaxInt32 {
				return newParameterError(key, key+" values out of 32-bit signed range")
			}
			e.ExposureBias = SignedRational{Numerator: int32(num), Denominator: int32(den)}

		case key == "date_time_original":
			if err := setDateTime(key, &e.DateTimeOriginal, value); err != nil {
				return err
			}

		case key == "date_time_digitized":
			if err := setDateTime(key, &e.DateTimeDigitized, value); err != nil {
				return err
			}

		default:
			// Unknown keys are ignored so callers can feed a superset
			// mapping produced elsewhere.
		}
	}
	return nil
}

// asRationalPair accepts a length-2 sequence of non-negative integers.
func asRationalPair(key string, value any) (num, den uint32, err error) {
	var parts []int64
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			n, ok := asInt(item)
			if !ok {
				return 0, 0, newParameterError(key, key+" requires a pair of integers")
			}
			parts = append(parts, n)
		}
	case []int:
		for _, n := range v {
			parts = append(parts, int64(n))
		}
	case []int64:
		parts = v
	default:
		return 0, 0, newParameterError(key, fmt.Sprintf("%s requires a (numerator, denominator) pair, got %T", key, value))
	}
	if len(parts) != 2 {
		return 0, 0, newParameterError(key, fmt.Sprintf("%s requires exactly 2 values, got %d", key, len(parts)))
	}
	if parts[0] < 0 || parts[1] < 0 {
		return 0, 0, newParameterError(key, key+" values must be non-negative")
	}
	if parts[0] > math.MaxUint32 || parts[1] > math.MaxUint32 {
		return 0, 0, newParameterError(key, key+" values out of 32-bit range")
	}
	return uint32(parts[0]), uint32(parts[1]), nil
}

func setDateTime(key string, dst *DateTime, value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return newParameterError(key, fmt.Sprintf("%s requires a mapping of calendar fields, got %T", key, value))
	}
	fields := map[string]struct {
		max int64
		set func(int64)
	}{
		"year":   {math.MaxUint16, func(n int64) { dst.Year = uint16(n) }},
		"month":  {12, func(n int64) { dst.Month = uint8(n) }},
		"day":    {31, func(n int64) { dst.Day = uint8(n) }},
		"hour":   {23, func(n int64) { dst.Hour = uint8(n) }},
		"minute": {59, func(n int64) { dst.Minute = uint8(n) }},
		"second": {60, func(n int64) { dst.Second = uint8(n) }},
	}
	for name, f := range fields {
		v, present := m[name]
		if !present {
			continue
		}
		n, ok := asInt(v)
		if !ok || n < 0 || n > f.max {
			return newParameterError(key, fmt.Sprintf("%s.%s is out of range", key, name))
		}
		f.set(n)
	}
	return nil
}

// asInt coerces the integer shapes that reach the boundary: native ints
// and the float64 values JSON decoding produces.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case float32:
		f := float64(n)
		if f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
