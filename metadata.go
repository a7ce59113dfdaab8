package gpr

// ExtractOptions controls metadata projection.
type ExtractOptions struct {
	// ZeroMissingRationals projects absent rational values as 0 instead of
	// omitting their keys. The literal (num, den) pair stays omitted.
	ZeroMissingRationals bool
}

// withParsedParameters is the shared read side of the metadata operations:
// validate, read, default a parameter record, parse the container into it,
// then hand the record to visit before the deferred releases run. parsed is
// false when the container carries no parseable metadata; the record then
// still holds codec defaults.
func withParsedParameters(op, inputPath string, visit func(p *Parameters, parsed bool) error) (err error) {
	c, err := requireCodec(op)
	if err != nil {
		return err
	}
	if err := ValidateInput(inputPath); err != nil {
		return annotate(err, op, inputPath, "")
	}

	alloc := c.Allocator()

	defer func() {
		if r := recover(); r != nil {
			err = newConversionError(op, "unknown error in codec", inputPath, "")
		}
	}()

	inBuf, err := ReadFile(inputPath, alloc)
	if err != nil {
		return annotate(err, op, inputPath, "")
	}
	defer inBuf.Release(alloc)

	var params Parameters
	paramsInitialized := false
	defer func() {
		if paramsInitialized {
			c.ParametersDestroy(&params, alloc.Free)
		}
	}()

	if err := c.ParametersSetDefaults(&params); err != nil {
		return annotate(newParameterError("", "cannot initialize codec parameters: "+err.Error()),
			op, inputPath, "")
	}
	paramsInitialized = true

	parsed := c.ParseMetadata(alloc, &inBuf, &params)
	return visit(&params, parsed)
}

// ExtractEXIFMetadata reads the EXIF record embedded in a GPR or DNG file
// and projects it into a nested mapping. String values are trimmed at the
// first NUL; rationals appear both as a float quotient and as a literal
// "<key>_rational" (num, den) pair; enumerated codes keep their wire
// integers; timestamps become 6-field sub-mappings and GPS a sub-mapping
// with at least a "valid" key.
func ExtractEXIFMetadata(inputPath string, opts ...func(*ExtractOptions)) (map[string]any, error) {
	var o ExtractOptions
	for _, opt := range opts {
		opt(&o)
	}

	var out map[string]any
	err := withParsedParameters("extract_exif_metadata", inputPath, func(p *Parameters, _ bool) error {
		out = projectEXIF(&p.EXIFInfo, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractGPRMetadata reads the GPR tuning side of the parameter record:
// dimensions, encoder flags, and summaries of the embedded preview, GPMF
// payload, color profile and camera tuning.
func ExtractGPRMetadata(inputPath string) (map[string]any, error) {
	var out map[string]any
	err := withParsedParameters("extract_gpr_metadata", inputPath, func(p *Parameters, _ bool) error {
		out = map[string]any{
			"input_width":    p.InputWidth,
			"input_height":   p.InputHeight,
			"input_pitch":    p.InputPitch,
			"fast_encoding":  p.FastEncoding,
			"compute_md5sum": p.ComputeMD5Sum,
			"enable_preview": p.EnablePreview,
			"preview_image": map[string]any{
				"has_preview":      !p.PreviewImage.JPGPreview.Empty(),
				"width":            p.PreviewImage.Width,
				"height":           p.PreviewImage.Height,
				"jpg_preview_size": p.PreviewImage.JPGPreview.Size(),
			},
			"gpmf_payload": map[string]any{
				"has_gpmf": !p.GPMFPayload.Empty(),
				"size":     p.GPMFPayload.Size(),
			},
			"profile": map[string]any{
				"white_balance_gains": []float64{
					p.ProfileInfo.WhiteBalanceGains[0],
					p.ProfileInfo.WhiteBalanceGains[1],
					p.ProfileInfo.WhiteBalanceGains[2],
				},
			},
			"tuning": map[string]any{
				"orientation": int(p.TuningInfo.Orientation),
				"static_black_level": []int{
					int(p.TuningInfo.StaticBlackLevel[0]),
					int(p.TuningInfo.StaticBlackLevel[1]),
					int(p.TuningInfo.StaticBlackLevel[2]),
					int(p.TuningInfo.StaticBlackLevel[3]),
				},
				"noise_scale": p.TuningInfo.NoiseScale,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func projectEXIF(e *EXIFInfo, o ExtractOptions) map[string]any {
	m := map[string]any{
		"camera_make":       cstring(e.CameraMake[:]),
		"camera_model":      cstring(e.CameraModel[:]),
		"camera_serial":     cstring(e.CameraSerial[:]),
		"software_version":  cstring(e.SoftwareVersion[:]),
		"user_comment":      cstring(e.UserComment[:]),
		"image_description": cstring(e.ImageDescription[:]),

		"iso_speed_rating":          int(e.ISOSpeedRating),
		"focal_length_in_35mm_film": int(e.FocalLengthIn35mmFilm),
		"saturation":                int(e.Saturation),

		"exposure_program":   int(e.ExposureProgram),
		"metering_mode":      int(e.MeteringMode),
		"light_source":       int(e.LightSource),
		"flash":              int(e.Flash),
		"sharpness":          int(e.Sharpness),
		"gain_control":       int(e.GainControl),
		"contrast":           int(e.Contrast),
		"scene_capture_type": int(e.SceneCaptureType),
		"exposure_mode":      int(e.ExposureMode),
		"white_balance":      int(e.WhiteBalance),
		"scene_type":         int(e.SceneType),
		"file_source":        int(e.FileSource),
		"sensing_method":     int(e.SensingMethod),

		"date_time_original":  dateTimeMap(e.DateTimeOriginal),
		"date_time_digitized": dateTimeMap(e.DateTimeDigitized),

		"gps_info": projectGPS(&e.GPSInfo),
	}

	putRational(m, "exposure_time", e.ExposureTime, o)
	putRational(m, "f_stop_number", e.FStopNumber, o)
	putRational(m, "aperture", e.Aperture, o)
	putRational(m, "focal_length", e.FocalLength, o)
	putSignedRational(m, "exposure_bias", e.ExposureBias, o)
	putRational(m, "digital_zoom", e.DigitalZoom, o)

	return m
}

func putRational(m map[string]any, key string, r Rational, o ExtractOptions) {
	if r.Valid() {
		m[key] = r.Float()
		m[key+"_rational"] = []int{int(r.Numerator), int(r.Denominator)}
		return
	}
	if o.ZeroMissingRationals {
		m[key] = 0.0
	}
}

func putSignedRational(m map[string]any, key string, r SignedRational, o ExtractOptions) {
	if r.Valid() {
		m[key] = r.Float()
		m[key+"_rational"] = []int{int(r.Numerator), int(r.Denominator)}
		return
	}
	if o.ZeroMissingRationals {
		m[key] = 0.0
	}
}

func dateTimeMap(dt DateTime) map[string]any {
	return map[string]any{
		"year":   int(dt.Year),
		"month":  int(dt.Month),
		"day":    int(dt.Day),
		"hour":   int(dt.Hour),
		"minute": int(dt.Minute),
		"second": int(dt.Second),
	}
}

// projectGPS emits {"valid": false} alone when the codec reports no GPS
// fix. Coordinate triples become lists of (num, den) pairs with an empty
// list standing in for zero-denominator slots.
func projectGPS(g *GPSInfo) map[string]any {
	if !g.Valid {
		return map[string]any{"valid": false}
	}
	m := map[string]any{
		"valid":         true,
		"latitude_ref":  cstring(g.LatitudeRef[:]),
		"longitude_ref": cstring(g.LongitudeRef[:]),
		"latitude":      rationalTriple(g.Latitude),
		"longitude":     rationalTriple(g.Longitude),
		"altitude_ref":  int(g.AltitudeRef),
		"time_stamp":    rationalTriple(g.TimeStamp),

		"satellites":        cstring(g.Satellites[:]),
		"status":            cstring(g.Status[:]),
		"measure_mode":      cstring(g.MeasureMode[:]),
		"map_datum":         cstring(g.MapDatum[:]),
		"processing_method": cstring(g.ProcessingMethod[:]),
		"area_information":  cstring(g.AreaInformation[:]),
		"date_stamp":        cstring(g.DateStamp[:]),
	}
	putRationalPair(m, "altitude", g.Altitude)
	putRationalPair(m, "speed", g.Speed)
	putRationalPair(m, "track", g.Track)
	putRationalPair(m, "img_direction", g.ImgDirection)
	putRationalPair(m, "dest_bearing", g.DestBearing)
	putRationalPair(m, "dest_distance", g.DestDistance)
	return m
}

func putRationalPair(m map[string]any, key string, r Rational) {
	if !r.Valid() {
		return
	}
	m[key] = r.Float()
	m[key+"_rational"] = []int{int(r.Numerator), int(r.Denominator)}
}

func rationalTriple(rs [3]Rational) [][]int {
	out := make([][]int, 3)
	for i, r := range rs {
		if r.Valid() {
			out[i] = []int{int(r.Numerator), int(r.Denominator)}
		} else {
			out[i] = []int{}
		}
	}
	return out
}
