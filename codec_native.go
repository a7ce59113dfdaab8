//go:build gprsdk && cgo

package gpr

/*
#cgo LDFLAGS: -lgpr_sdk -lvc5_decoder -lvc5_encoder -ldng_sdk -lcommon -lmd5 -lstdc++
#include <stdlib.h>
#include <string.h>
#include "gpr.h"
#include "gpr_buffer.h"
#include "gpr_allocator.h"

static void go_gpr_default_allocator(gpr_allocator* a) {
	a->Alloc = gpr_global_malloc;
	a->Free  = gpr_global_free;
}

static void go_gpr_parameters_destroy(gpr_parameters* p) {
	gpr_parameters_destroy(p, gpr_global_free);
}

// Field selectors for the 16-bit EXIF scalars and enumerated codes. Going
// through C keeps the int-to-enum conversions implicit instead of spelling
// every enum type name on the Go side.
enum {
	XF_ISO, XF_FLEN35, XF_SATURATION,
	XF_EXPOSURE_PROGRAM, XF_METERING_MODE, XF_LIGHT_SOURCE, XF_FLASH,
	XF_SHARPNESS, XF_GAIN_CONTROL, XF_CONTRAST, XF_SCENE_CAPTURE_TYPE,
	XF_EXPOSURE_MODE, XF_WHITE_BALANCE, XF_SCENE_TYPE, XF_FILE_SOURCE,
	XF_SENSING_METHOD,
	XF_COUNT
};

static void go_exif_set_u16(gpr_exif_info* e, int which, unsigned v) {
	switch (which) {
	case XF_ISO: e->iso_speed_rating = v; break;
	case XF_FLEN35: e->focal_length_in_35mm_film = v; break;
	case XF_SATURATION: e->saturation = v; break;
	case XF_EXPOSURE_PROGRAM: e->exposure_program = v; break;
	case XF_METERING_MODE: e->metering_mode = v; break;
	case XF_LIGHT_SOURCE: e->light_source = v; break;
	case XF_FLASH: e->flash = v; break;
	case XF_SHARPNESS: e->sharpness = v; break;
	case XF_GAIN_CONTROL: e->gain_control = v; break;
	case XF_CONTRAST: e->contrast = v; break;
	case XF_SCENE_CAPTURE_TYPE: e->scene_capture_type = v; break;
	case XF_EXPOSURE_MODE: e->exposure_mode = v; break;
	case XF_WHITE_BALANCE: e->white_balance = v; break;
	case XF_SCENE_TYPE: e->scene_type = v; break;
	case XF_FILE_SOURCE: e->file_source = v; break;
	case XF_SENSING_METHOD: e->sensing_method = v; break;
	}
}

static unsigned go_exif_get_u16(const gpr_exif_info* e, int which) {
	switch (which) {
	case XF_ISO: return e->iso_speed_rating;
	case XF_FLEN35: return e->focal_length_in_35mm_film;
	case XF_SATURATION: return e->saturation;
	case XF_EXPOSURE_PROGRAM: return e->exposure_program;
	case XF_METERING_MODE: return e->metering_mode;
	case XF_LIGHT_SOURCE: return e->light_source;
	case XF_FLASH: return e->flash;
	case XF_SHARPNESS: return e->sharpness;
	case XF_GAIN_CONTROL: return e->gain_control;
	case XF_CONTRAST: return e->contrast;
	case XF_SCENE_CAPTURE_TYPE: return e->scene_capture_type;
	case XF_EXPOSURE_MODE: return e->exposure_mode;
	case XF_WHITE_BALANCE: return e->white_balance;
	case XF_SCENE_TYPE: return e->scene_type;
	case XF_FILE_SOURCE: return e->file_source;
	case XF_SENSING_METHOD: return e->sensing_method;
	}
	return 0;
}
*/
import "C"

import "unsafe"

// nativeCodec binds the package to the GPR SDK. Buffers crossing this
// boundary live in C memory obtained from the SDK's global allocator.
type nativeCodec struct{}

func init() { SetCodec(nativeCodec{}) }

func (nativeCodec) Allocator() Allocator {
	return Allocator{
		Alloc: func(n int) []byte {
			if n <= 0 {
				return nil
			}
			p := C.gpr_global_malloc(C.size_t(n))
			if p == nil {
				return nil
			}
			return unsafe.Slice((*byte)(p), n)
		},
		Free: func(b []byte) {
			if len(b) == 0 {
				return
			}
			C.gpr_global_free(unsafe.Pointer(&b[0]))
		},
	}
}

func (nativeCodec) ParametersSetDefaults(p *Parameters) error {
	var cp C.gpr_parameters
	C.gpr_parameters_set_defaults(&cp)
	defer C.go_gpr_parameters_destroy(&cp)
	fromCParameters(&cp, p, Allocator{})
	return nil
}

func (nativeCodec) ParametersDestroy(p *Parameters, free FreeFunc) {
	p.Destroy(free)
}

func (c nativeCodec) ParseMetadata(a Allocator, input *Buffer, p *Parameters) bool {
	var calloc C.gpr_allocator
	C.go_gpr_default_allocator(&calloc)

	var cp C.gpr_parameters
	C.gpr_parameters_set_defaults(&cp)
	defer C.go_gpr_parameters_destroy(&cp)

	cin := cBuffer(input)
	if !bool(C.gpr_parse_metadata(&calloc, &cin, &cp)) {
		return false
	}
	fromCParameters(&cp, p, a)
	return true
}

func (c nativeCodec) ConvertGPRToDNG(a Allocator, p *Parameters, input, output *Buffer) bool {
	return c.convertWithParams(p, input, output, func(calloc *C.gpr_allocator, cp *C.gpr_parameters, cin, cout *C.gpr_buffer) C.bool {
		return C.gpr_convert_gpr_to_dng(calloc, cp, cin, cout)
	})
}

func (c nativeCodec) ConvertDNGToGPR(a Allocator, p *Parameters, input, output *Buffer) bool {
	return c.convertWithParams(p, input, output, func(calloc *C.gpr_allocator, cp *C.gpr_parameters, cin, cout *C.gpr_buffer) C.bool {
		return C.gpr_convert_dng_to_gpr(calloc, cp, cin, cout)
	})
}

func (c nativeCodec) ConvertDNGToDNG(a Allocator, p *Parameters, input, output *Buffer) bool {
	return c.convertWithParams(p, input, output, func(calloc *C.gpr_allocator, cp *C.gpr_parameters, cin, cout *C.gpr_buffer) C.bool {
		return C.gpr_convert_dng_to_dng(calloc, cp, cin, cout)
	})
}

func (nativeCodec) ConvertGPRToRAW(a Allocator, input, output *Buffer) bool {
	var calloc C.gpr_allocator
	C.go_gpr_default_allocator(&calloc)

	cin := cBuffer(input)
	var cout C.gpr_buffer
	if !bool(C.gpr_convert_gpr_to_raw(&calloc, &cin, &cout)) {
		return false
	}
	output.Data = adoptCBuffer(&cout)
	return true
}

func (nativeCodec) convertWithParams(p *Parameters, input, output *Buffer,
	call func(*C.gpr_allocator, *C.gpr_parameters, *C.gpr_buffer, *C.gpr_buffer) C.bool,
) bool {
	var calloc C.gpr_allocator
	C.go_gpr_default_allocator(&calloc)

	var cp C.gpr_parameters
	C.gpr_parameters_set_defaults(&cp)
	defer C.go_gpr_parameters_destroy(&cp)
	toCParameters(p, &cp)

	cin := cBuffer(input)
	var cout C.gpr_buffer
	if !bool(call(&calloc, &cp, &cin, &cout)) {
		return false
	}
	output.Data = adoptCBuffer(&cout)
	return true
}

// cBuffer views a Go-side buffer as a gpr_buffer without copying. The
// backing memory already comes from the SDK allocator.
func cBuffer(b *Buffer) C.gpr_buffer {
	var cb C.gpr_buffer
	if !b.Empty() {
		cb.buffer = unsafe.Pointer(&b.Data[0])
		cb.size = C.size_t(len(b.Data))
	}
	return cb
}

// adoptCBuffer takes ownership of an SDK-filled buffer.
func adoptCBuffer(cb *C.gpr_buffer) []byte {
	if cb.buffer == nil || cb.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(cb.buffer), int(cb.size))
}

var exifFieldIDs = [...]struct {
	id  C.int
	sel func(e *EXIFInfo) *uint16
}{
	{C.XF_ISO, func(e *EXIFInfo) *uint16 { return &e.ISOSpeedRating }},
	{C.XF_FLEN35, func(e *EXIFInfo) *uint16 { return &e.FocalLengthIn35mmFilm }},
	{C.XF_SATURATION, func(e *EXIFInfo) *uint16 { return &e.Saturation }},
	{C.XF_EXPOSURE_PROGRAM, func(e *EXIFInfo) *uint16 { return &e.ExposureProgram }},
	{C.XF_METERING_MODE, func(e *EXIFInfo) *uint16 { return &e.MeteringMode }},
	{C.XF_LIGHT_SOURCE, func(e *EXIFInfo) *uint16 { return &e.LightSource }},
	{C.XF_FLASH, func(e *EXIFInfo) *uint16 { return &e.Flash }},
	{C.XF_SHARPNESS, func(e *EXIFInfo) *uint16 { return &e.Sharpness }},
	{C.XF_GAIN_CONTROL, func(e *EXIFInfo) *uint16 { return &e.GainControl }},
	{C.XF_CONTRAST, func(e *EXIFInfo) *uint16 { return &e.Contrast }},
	{C.XF_SCENE_CAPTURE_TYPE, func(e *EXIFInfo) *uint16 { return &e.SceneCaptureType }},
	{C.XF_EXPOSURE_MODE, func(e *EXIFInfo) *uint16 { return &e.ExposureMode }},
	{C.XF_WHITE_BALANCE, func(e *EXIFInfo) *uint16 { return &e.WhiteBalance }},
	{C.XF_SCENE_TYPE, func(e *EXIFInfo) *uint16 { return &e.SceneType }},
	{C.XF_FILE_SOURCE, func(e *EXIFInfo) *uint16 { return &e.FileSource }},
	{C.XF_SENSING_METHOD, func(e *EXIFInfo) *uint16 { return &e.SensingMethod }},
}

func toCParameters(p *Parameters, cp *C.gpr_parameters) {
	cp.input_width = C.uint(p.InputWidth)
	cp.input_height = C.uint(p.InputHeight)
	cp.input_pitch = C.int(p.InputPitch)
	cp.fast_encoding = C.bool(p.FastEncoding)
	cp.compute_md5sum = C.bool(p.ComputeMD5Sum)
	cp.enable_preview = C.bool(p.EnablePreview)

	e := &p.EXIFInfo
	ce := &cp.exif_info
	putCChars(ce.camera_make[:], e.CameraMake[:])
	putCChars(ce.camera_model[:], e.CameraModel[:])
	putCChars(ce.camera_serial[:], e.CameraSerial[:])
	putCChars(ce.software_version[:], e.SoftwareVersion[:])
	putCChars(ce.user_comment[:], e.UserComment[:])
	putCChars(ce.image_description[:], e.ImageDescription[:])

	setCURational(&ce.exposure_time, e.ExposureTime)
	setCURational(&ce.f_stop_number, e.FStopNumber)
	setCURational(&ce.aperture, e.Aperture)
	setCURational(&ce.focal_length, e.FocalLength)
	ce.exposure_bias.numerator = C.int32_t(e.ExposureBias.Numerator)
	ce.exposure_bias.denominator = C.int32_t(e.ExposureBias.Denominator)
	setCURational(&ce.digital_zoom, e.DigitalZoom)

	for _, f := range exifFieldIDs {
		C.go_exif_set_u16(ce, f.id, C.uint(*f.sel(e)))
	}

	setCDateTime(&ce.date_time_original, e.DateTimeOriginal)
	setCDateTime(&ce.date_time_digitized, e.DateTimeDigitized)

	ce.gps_info.gps_info_valid = C.bool(e.GPSInfo.Valid)
	if e.GPSInfo.Valid {
		g := &e.GPSInfo
		cg := &ce.gps_info
		putCChars(cg.latitude_ref[:], g.LatitudeRef[:])
		putCChars(cg.longitude_ref[:], g.LongitudeRef[:])
		for i := 0; i < 3; i++ {
			setCURational(&cg.latitude[i], g.Latitude[i])
			setCURational(&cg.longitude[i], g.Longitude[i])
			setCURational(&cg.time_stamp[i], g.TimeStamp[i])
		}
		cg.altitude_ref = C.uint8_t(g.AltitudeRef)
		setCURational(&cg.altitude, g.Altitude)
		setCURational(&cg.speed, g.Speed)
		setCURational(&cg.track, g.Track)
		setCURational(&cg.img_direction, g.ImgDirection)
		setCURational(&cg.dest_bearing, g.DestBearing)
		setCURational(&cg.dest_distance, g.DestDistance)
		putCChars(cg.satellites[:], g.Satellites[:])
		putCChars(cg.status[:], g.Status[:])
		putCChars(cg.measure_mode[:], g.MeasureMode[:])
		putCChars(cg.map_datum[:], g.MapDatum[:])
		putCChars(cg.processing_method[:], g.ProcessingMethod[:])
		putCChars(cg.area_information[:], g.AreaInformation[:])
		putCChars(cg.date_stamp[:], g.DateStamp[:])
	}
}

// fromCParameters copies the C record into the Go mirror. Nested SDK-owned
// buffers are duplicated through a so the C record can be destroyed
// normally; a zero allocator (defaults path) skips them.
func fromCParameters(cp *C.gpr_parameters, p *Parameters, a Allocator) {
	p.InputWidth = int(cp.input_width)
	p.InputHeight = int(cp.input_height)
	p.InputPitch = int(cp.input_pitch)
	p.FastEncoding = bool(cp.fast_encoding)
	p.ComputeMD5Sum = bool(cp.compute_md5sum)
	p.EnablePreview = bool(cp.enable_preview)

	e := &p.EXIFInfo
	ce := &cp.exif_info
	getCChars(e.CameraMake[:], ce.camera_make[:])
	getCChars(e.CameraModel[:], ce.camera_model[:])
	getCChars(e.CameraSerial[:], ce.camera_serial[:])
	getCChars(e.SoftwareVersion[:], ce.software_version[:])
	getCChars(e.UserComment[:], ce.user_comment[:])
	getCChars(e.ImageDescription[:], ce.image_description[:])

	e.ExposureTime = goURational(ce.exposure_time)
	e.FStopNumber = goURational(ce.f_stop_number)
	e.Aperture = goURational(ce.aperture)
	e.FocalLength = goURational(ce.focal_length)
	e.ExposureBias = SignedRational{
		Numerator:   int32(ce.exposure_bias.numerator),
		Denominator: int32(ce.exposure_bias.denominator),
	}
	e.DigitalZoom = goURational(ce.digital_zoom)

	for _, f := range exifFieldIDs {
		*f.sel(e) = uint16(C.go_exif_get_u16(ce, f.id))
	}

	e.DateTimeOriginal = goDateTime(ce.date_time_original)
	e.DateTimeDigitized = goDateTime(ce.date_time_digitized)

	e.GPSInfo = GPSInfo{Valid: bool(ce.gps_info.gps_info_valid)}
	if e.GPSInfo.Valid {
		g := &e.GPSInfo
		cg := &ce.gps_info
		getCChars(g.LatitudeRef[:], cg.latitude_ref[:])
		getCChars(g.LongitudeRef[:], cg.longitude_ref[:])
		for i := 0; i < 3; i++ {
			g.Latitude[i] = goURational(cg.latitude[i])
			g.Longitude[i] = goURational(cg.longitude[i])
			g.TimeStamp[i] = goURational(cg.time_stamp[i])
		}
		g.AltitudeRef = byte(cg.altitude_ref)
		g.Altitude = goURational(cg.altitude)
		g.Speed = goURational(cg.speed)
		g.Track = goURational(cg.track)
		g.ImgDirection = goURational(cg.img_direction)
		g.DestBearing = goURational(cg.dest_bearing)
		g.DestDistance = goURational(cg.dest_distance)
		getCChars(g.Satellites[:], cg.satellites[:])
		getCChars(g.Status[:], cg.status[:])
		getCChars(g.MeasureMode[:], cg.measure_mode[:])
		getCChars(g.MapDatum[:], cg.map_datum[:])
		getCChars(g.ProcessingMethod[:], cg.processing_method[:])
		getCChars(g.AreaInformation[:], cg.area_information[:])
		getCChars(g.DateStamp[:], cg.date_stamp[:])
	}

	if a.Alloc != nil {
		p.PreviewImage.Width = int(cp.preview_image.preview_width)
		p.PreviewImage.Height = int(cp.preview_image.preview_height)
		p.PreviewImage.JPGPreview = Buffer{Data: dupCBuffer(&cp.preview_image.jpg_preview, a)}
		p.GPMFPayload = Buffer{Data: dupCBytes(unsafe.Pointer(cp.gpmf_payload.buffer), int(cp.gpmf_payload.size), a)}
	}
}

func dupCBuffer(cb *C.gpr_buffer, a Allocator) []byte {
	return dupCBytes(cb.buffer, int(cb.size), a)
}

func dupCBytes(ptr unsafe.Pointer, n int, a Allocator) []byte {
	if ptr == nil || n <= 0 {
		return nil
	}
	dst := a.Alloc(n)
	if dst == nil {
		return nil
	}
	copy(dst, unsafe.Slice((*byte)(ptr), n))
	return dst
}

func setCURational(dst *C.gpr_unsigned_rational, r Rational) {
	dst.numerator = C.uint32_t(r.Numerator)
	dst.denominator = C.uint32_t(r.Denominator)
}

func goURational(r C.gpr_unsigned_rational) Rational {
	return Rational{Numerator: uint32(r.numerator), Denominator: uint32(r.denominator)}
}

func setCDateTime(dst *C.gpr_date_and_time, dt DateTime) {
	dst.year = C.uint32_t(dt.Year)
	dst.month = C.uint8_t(dt.Month)
	dst.day = C.uint8_t(dt.Day)
	dst.hour = C.uint8_t(dt.Hour)
	dst.minute = C.uint8_t(dt.Minute)
	dst.second = C.uint8_t(dt.Second)
}

func goDateTime(dt C.gpr_date_and_time) DateTime {
	return DateTime{
		Year:   uint16(dt.year),
		Month:  uint8(dt.month),
		Day:    uint8(dt.day),
		Hour:   uint8(dt.hour),
		Minute: uint8(dt.minute),
		Second: uint8(dt.second),
	}
}

func putCChars(dst []C.char, src []byte) {
	n := len(dst)
	if n > len(src) {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] = C.char(src[i])
	}
	if len(dst) > 0 {
		dst[len(dst)-1] = 0
	}
}

func getCChars(dst []byte, src []C.char) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(dst) - 1
	if n > len(src) {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		if src[i] == 0 {
			break
		}
		dst[i] = byte(src[i])
	}
}
