package gpr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// countingAllocator is a Go-heap allocator that tracks live allocations so
// tests can assert the exactly-once release discipline.
type countingAllocator struct {
	mu     sync.Mutex
	allocs int
	frees  int
}

func (ca *countingAllocator) allocator() Allocator {
	return Allocator{
		Alloc: func(n int) []byte {
			if n <= 0 {
				return nil
			}
			ca.mu.Lock()
			ca.allocs++
			ca.mu.Unlock()
			return make([]byte, n)
		},
		Free: func(b []byte) {
			if b == nil {
				return
			}
			ca.mu.Lock()
			ca.frees++
			ca.mu.Unlock()
		},
	}
}

func (ca *countingAllocator) live() int {
	ca.mu.Lock()
	defer ca.mu.Unlock()
	return ca.allocs - ca.frees
}

// fakeCodec is an in-memory stand-in for the GPR SDK. Its "containers" are
// a magic header, a JSON-encoded parameter snapshot and the raw payload,
// which makes metadata round-trips and re-encode idempotence observable
// from tests. Failure modes are injectable per call site.
type fakeCodec struct {
	mem *countingAllocator

	failDefaults bool
	failConvert  bool
	emptyOutput  bool
	panicConvert bool
	denyAlloc    bool
	rawTruncate  int // bytes chopped off the decoded RAW plane
}

var fakeMagic = []byte("GPRFAKE1")

// fakeMeta is the parameter snapshot embedded in fake containers.
type fakeMeta struct {
	Exif          EXIFInfo
	InputWidth    int
	InputHeight   int
	InputPitch    int
	PreviewWidth  int
	PreviewHeight int
	Preview       []byte
	GPMF          []byte
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{mem: &countingAllocator{}}
}

func installFakeCodec(t *testing.T) *fakeCodec {
	t.Helper()
	fc := newFakeCodec()
	prev := ActiveCodec()
	SetCodec(fc)
	t.Cleanup(func() { SetCodec(prev) })
	return fc
}

func (fc *fakeCodec) Allocator() Allocator {
	a := fc.mem.allocator()
	if fc.denyAlloc {
		a.Alloc = func(int) []byte { return nil }
	}
	return a
}

func (fc *fakeCodec) ParametersSetDefaults(p *Parameters) error {
	if fc.failDefaults {
		return errors.New("injected defaults failure")
	}
	*p = Parameters{InputPitch: -1}
	setCString(p.EXIFInfo.SoftwareVersion[:], "fake-sdk 1.0")
	return nil
}

func (fc *fakeCodec) ParametersDestroy(p *Parameters, free FreeFunc) {
	p.Destroy(free)
}

func (fc *fakeCodec) ParseMetadata(a Allocator, input *Buffer, p *Parameters) bool {
	meta, _, ok := decodeFakeContainer(input.Data)
	if !ok {
		return false
	}
	p.EXIFInfo = meta.Exif
	p.InputWidth = meta.InputWidth
	p.InputHeight = meta.InputHeight
	p.InputPitch = meta.InputPitch
	p.PreviewImage.Width = meta.PreviewWidth
	p.PreviewImage.Height = meta.PreviewHeight
	p.PreviewImage.JPGPreview = Buffer{Data: allocCopy(a, meta.Preview)}
	p.GPMFPayload = Buffer{Data: allocCopy(a, meta.GPMF)}
	return true
}

func (fc *fakeCodec) ConvertGPRToDNG(a Allocator, p *Parameters, input, output *Buffer) bool {
	return fc.reencode(a, p, input, output)
}

func (fc *fakeCodec) ConvertDNGToGPR(a Allocator, p *Parameters, input, output *Buffer) bool {
	return fc.reencode(a, p, input, output)
}

func (fc *fakeCodec) ConvertDNGToDNG(a Allocator, p *Parameters, input, output *Buffer) bool {
	return fc.reencode(a, p, input, output)
}

// reencode emits header + snapshot + payload. Stripping any previous header
// from the input makes the re-encode idempotent under equal parameters,
// matching the determinism contract of the real codec.
func (fc *fakeCodec) reencode(a Allocator, p *Parameters, input, output *Buffer) bool {
	if fc.panicConvert {
		panic("injected codec panic")
	}
	if fc.failConvert {
		return false
	}
	if fc.emptyOutput {
		return true
	}

	payload := input.Data
	if _, rest, ok := decodeFakeContainer(input.Data); ok {
		payload = rest
	}
	meta := fakeMeta{
		Exif:          p.EXIFInfo,
		InputWidth:    p.InputWidth,
		InputHeight:   p.InputHeight,
		InputPitch:    p.InputPitch,
		PreviewWidth:  p.PreviewImage.Width,
		PreviewHeight: p.PreviewImage.Height,
		Preview:       p.PreviewImage.JPGPreview.Data,
		GPMF:          p.GPMFPayload.Data,
	}
	encoded := encodeFakeContainer(meta, payload)
	output.Data = allocCopy(a, encoded)
	return output.Data != nil
}

func (fc *fakeCodec) ConvertGPRToRAW(a Allocator, input, output *Buffer) bool {
	if fc.panicConvert {
		panic("injected codec panic")
	}
	if fc.failConvert {
		return false
	}
	if fc.emptyOutput {
		return true
	}
	w, h, err := probeDimensions(input.Data)
	if err != nil {
		return false
	}
	plane := make([]byte, w*h*2)
	for i := 0; i < w*h; i++ {
		binary.LittleEndian.PutUint16(plane[2*i:], uint16(i%65536))
	}
	if fc.rawTruncate > 0 && fc.rawTruncate < len(plane) {
		plane = plane[:len(plane)-fc.rawTruncate]
	}
	output.Data = allocCopy(a, plane)
	return output.Data != nil
}

func allocCopy(a Allocator, src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := a.Alloc(len(src))
	if dst == nil {
		return nil
	}
	copy(dst, src)
	return dst
}

func encodeFakeContainer(meta fakeMeta, payload []byte) []byte {
	blob, err := json.Marshal(meta)
	if err != nil {
		panic(err)
	}
	out := make([]byte, 0, len(fakeMagic)+4+len(blob)+len(payload))
	out = append(out, fakeMagic...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(blob)))
	out = append(out, blob...)
	out = append(out, payload...)
	return out
}

func decodeFakeContainer(data []byte) (meta fakeMeta, payload []byte, ok bool) {
	if !bytes.HasPrefix(data, fakeMagic) || len(data) < len(fakeMagic)+4 {
		return fakeMeta{}, nil, false
	}
	n := int(binary.BigEndian.Uint32(data[len(fakeMagic):]))
	start := len(fakeMagic) + 4
	if start+n > len(data) {
		return fakeMeta{}, nil, false
	}
	if err := json.Unmarshal(data[start:start+n], &meta); err != nil {
		return fakeMeta{}, nil, false
	}
	return meta, data[start+n:], true
}

// writeFakeDNG writes a fake container file with the given snapshot.
func writeFakeDNG(t *testing.T, dir, name string, meta fakeMeta) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, encodeFakeContainer(meta, []byte("sensor-plane")), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// writeTIFF writes a minimal single-IFD little-endian TIFF, which the fake
// codec also accepts as a "GPR" input for RAW decodes.
func writeTIFF(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, makeTIFF(width, height), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func makeTIFF(width, height int) []byte {
	var b bytes.Buffer
	b.WriteString("II")
	binary.Write(&b, binary.LittleEndian, uint16(42))
	binary.Write(&b, binary.LittleEndian, uint32(8)) // IFD0 offset

	binary.Write(&b, binary.LittleEndian, uint16(2)) // entry count
	writeIFDEntry(&b, binary.LittleEndian, tagImageWidth, typeLong, uint32(width))
	writeIFDEntry(&b, binary.LittleEndian, tagImageLength, typeLong, uint32(height))
	binary.Write(&b, binary.LittleEndian, uint32(0)) // no next IFD
	return b.Bytes()
}

func writeIFDEntry(b *bytes.Buffer, order binary.ByteOrder, tag, typ uint16, value uint32) {
	binary.Write(b, order, tag)
	binary.Write(b, order, typ)
	binary.Write(b, order, uint32(1))
	binary.Write(b, order, value)
}
