package gpr

import (
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConvertGPRToDNG(t *testing.T) {
	fc := installFakeCodec(t)
	dir := t.TempDir()
	in := writeFakeDNG(t, dir, "in.gpr", fakeMeta{InputWidth: 64, InputHeight: 48})
	out := filepath.Join(dir, "out.dng")

	if err := ConvertGPRToDNG(in, out); err != nil {
		t.Fatalf("ConvertGPRToDNG: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := decodeFakeContainer(data); !ok {
		t.Fatal("output is not a codec container")
	}
	if fc.mem.live() != 0 {
		t.Fatalf("live allocations after conversion = %d", fc.mem.live())
	}
}

func TestConvertMissingInput(t *testing.T) {
	fc := installFakeCodec(t)
	dir := t.TempDir()

	err := ConvertDNGToGPR(filepath.Join(dir, "nope.dng"), filepath.Join(dir, "out.gpr"))
	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("error kind %T, want *FileError", err)
	}
	if fe.Code != CodeFileNotFound {
		t.Fatalf("code = %d, want %d", fe.Code, CodeFileNotFound)
	}
	if fe.Op != "convert_dng_to_gpr" {
		t.Fatalf("op = %q", fe.Op)
	}
	// Validation failed before the codec allocated anything.
	if fc.mem.allocs != 0 {
		t.Fatalf("codec allocator touched %d times before validation passed", fc.mem.allocs)
	}
}

func TestConvertEmptyInput(t *testing.T) {
	installFakeCodec(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "empty.gpr")
	if err := os.WriteFile(in, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := ConvertGPRToDNG(in, filepath.Join(dir, "out.dng"))
	var fe *FileError
	if !errors.As(err, &fe) || fe.Code != CodeFileCorrupted {
		t.Fatalf("got %v, want FileError with code %d", err, CodeFileCorrupted)
	}
}

func TestConvertCodecFailure(t *testing.T) {
	fc := installFakeCodec(t)
	fc.failConvert = true
	dir := t.TempDir()
	in := writeFakeDNG(t, dir, "in.gpr", fakeMeta{})
	out := filepath.Join(dir, "out.dng")

	err := ConvertGPRToDNG(in, out)
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("error kind %T, want *ConversionError", err)
	}
	if ce.InputPath != in || ce.OutputPath != out {
		t.Fatalf("paths = %q, %q", ce.InputPath, ce.OutputPath)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("output file created despite codec failure")
	}
	if fc.mem.live() != 0 {
		t.Fatalf("live allocations after failure = %d", fc.mem.live())
	}
}

func TestConvertEmptyCodecOutput(t *testing.T) {
	fc := installFakeCodec(t)
	fc.emptyOutput = true
	dir := t.TempDir()
	in := writeFakeDNG(t, dir, "in.gpr", fakeMeta{})
	out := filepath.Join(dir, "out.dng")

	err := ConvertGPRToDNG(in, out)
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("error kind %T, want *ConversionError", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("output file created despite empty codec output")
	}
	if fc.mem.live() != 0 {
		t.Fatalf("live allocations after failure = %d", fc.mem.live())
	}
}

func TestConvertCodecPanic(t *testing.T) {
	fc := installFakeCodec(t)
	fc.panicConvert = true
	dir := t.TempDir()
	in := writeFakeDNG(t, dir, "in.gpr", fakeMeta{})
	out := filepath.Join(dir, "out.dng")

	err := ConvertGPRToDNG(in, out)
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("panic not converted to *ConversionError, got %T: %v", err, err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("output file created despite codec panic")
	}
	// The deferred releases ran before the panic was recovered.
	if fc.mem.live() != 0 {
		t.Fatalf("live allocations after panic = %d", fc.mem.live())
	}
}

func TestConvertAllocationFailure(t *testing.T) {
	fc := installFakeCodec(t)
	fc.denyAlloc = true
	dir := t.TempDir()
	in := writeFakeDNG(t, dir, "in.gpr", fakeMeta{})
	out := filepath.Join(dir, "out.dng")

	err := ConvertGPRToDNG(in, out)
	var me *MemoryError
	if !errors.As(err, &me) {
		t.Fatalf("error kind %T, want *MemoryError", err)
	}
	if me.Code != CodeMemory {
		t.Fatalf("code = %d, want %d", me.Code, CodeMemory)
	}
	info, statErr := os.Stat(in)
	if statErr != nil {
		t.Fatal(statErr)
	}
	if me.RequestedSize != int(info.Size()) {
		t.Fatalf("requested size = %d, want %d", me.RequestedSize, info.Size())
	}
	if me.Op != "convert_gpr_to_dng" {
		t.Fatalf("op = %q", me.Op)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("output file created despite allocation failure")
	}
	if fc.mem.live() != 0 {
		t.Fatalf("live allocations = %d", fc.mem.live())
	}
}

func TestConvertDefaultsFailure(t *testing.T) {
	fc := installFakeCodec(t)
	fc.failDefaults = true
	dir := t.TempDir()
	in := writeFakeDNG(t, dir, "in.dng", fakeMeta{})

	err := ConvertDNGToDNG(in, filepath.Join(dir, "out.dng"))
	var pe *ParameterError
	if !errors.As(err, &pe) {
		t.Fatalf("error kind %T, want *ParameterError", err)
	}
	if fc.mem.live() != 0 {
		t.Fatalf("live allocations = %d", fc.mem.live())
	}
}

func TestConvertWithoutCodec(t *testing.T) {
	prev := ActiveCodec()
	SetCodec(nil)
	t.Cleanup(func() { SetCodec(prev) })

	err := ConvertGPRToDNG("in.gpr", "out.dng")
	if err == nil {
		t.Fatal("expected an error with no codec installed")
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		t.Fatal("missing codec misclassified as conversion failure")
	}
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("error kind %T, want *Error", err)
	}
}

func TestConvertDNGToDNGIdempotent(t *testing.T) {
	fc := installFakeCodec(t)
	dir := t.TempDir()
	in := writeFakeDNG(t, dir, "in.dng", fakeMeta{InputWidth: 64, InputHeight: 48})
	first := filepath.Join(dir, "first.dng")
	second := filepath.Join(dir, "second.dng")

	if err := ConvertDNGToDNG(in, first); err != nil {
		t.Fatalf("first re-encode: %v", err)
	}
	if err := ConvertDNGToDNG(first, second); err != nil {
		t.Fatalf("second re-encode: %v", err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if sha256.Sum256(a) != sha256.Sum256(b) {
		t.Fatal("re-encoding its own output changed the bytes")
	}
	if fc.mem.live() != 0 {
		t.Fatalf("live allocations = %d", fc.mem.live())
	}
}

func TestConvertGPRToRAW(t *testing.T) {
	fc := installFakeCodec(t)
	dir := t.TempDir()
	in := writeTIFF(t, dir, "in.gpr", 8, 4)
	out := filepath.Join(dir, "out.raw")

	if err := ConvertGPRToRAW(in, out); err != nil {
		t.Fatalf("ConvertGPRToRAW: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 8*4*2 {
		t.Fatalf("RAW plane is %d bytes, want %d", len(data), 8*4*2)
	}
	if fc.mem.live() != 0 {
		t.Fatalf("live allocations = %d", fc.mem.live())
	}
}

// A sequence of mixed successful and failing operations must leave the
// allocator balanced, with every buffer released exactly once.
func TestConversionSequenceLeakFree(t *testing.T) {
	fc := installFakeCodec(t)
	dir := t.TempDir()
	in := writeFakeDNG(t, dir, "in.gpr", fakeMeta{
		Preview: []byte("jpegbytes"),
		GPMF:    []byte("telemetry"),
	})

	for i := 0; i < 3; i++ {
		if err := ConvertGPRToDNG(in, filepath.Join(dir, "out.dng")); err != nil {
			t.Fatalf("round %d: %v", i, err)
		}
		if _, err := ExtractEXIFMetadata(in); err != nil {
			t.Fatalf("round %d extract: %v", i, err)
		}
	}

	fc.failConvert = true
	for i := 0; i < 3; i++ {
		if err := ConvertGPRToDNG(in, filepath.Join(dir, "fail.dng")); err == nil {
			t.Fatal("expected failure")
		}
	}
	fc.failConvert = false
	fc.panicConvert = true
	if err := ConvertGPRToDNG(in, filepath.Join(dir, "panic.dng")); err == nil {
		t.Fatal("expected failure")
	}

	if fc.mem.live() != 0 {
		t.Fatalf("live allocations after sequence = %d (allocs=%d frees=%d)",
			fc.mem.live(), fc.mem.allocs, fc.mem.frees)
	}
}
