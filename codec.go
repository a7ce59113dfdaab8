package gpr

// Codec is the raw conversion engine behind the binding. Implementations
// wrap the native GPR SDK (see the gprsdk build tag) or stand in for it in
// tests. Conversion calls report success with a bool, matching the SDK; the
// driver translates failures into the error taxonomy.
//
// Output buffers are filled with memory from the allocator passed in and
// become owned by the caller. A codec may call Alloc and Free any number of
// times during one conversion.
type Codec interface {
	// Allocator returns the codec's global allocator. Buffers handed to or
	// received from the codec must be paired with it.
	Allocator() Allocator

	ParametersSetDefaults(p *Parameters) error
	ParametersDestroy(p *Parameters, free FreeFunc)

	// ParseMetadata fills p from the container in input. A false return
	// means the container carries no parseable metadata; it is not an error.
	ParseMetadata(a Allocator, input *Buffer, p *Parameters) bool

	ConvertGPRToDNG(a Allocator, p *Parameters, input, output *Buffer) bool
	ConvertDNGToGPR(a Allocator, p *Parameters, input, output *Buffer) bool
	ConvertGPRToRAW(a Allocator, input, output *Buffer) bool
	ConvertDNGToDNG(a Allocator, p *Parameters, input, output *Buffer) bool
}

var activeCodec Codec

// SetCodec installs the process-wide codec. It is meant to be called once
// during startup (the native binding does so from an init function) and is
// not synchronized against in-flight operations.
func SetCodec(c Codec) { activeCodec = c }

// ActiveCodec returns the installed codec, or nil when none is installed.
func ActiveCodec() Codec { return activeCodec }

func requireCodec(op string) (Codec, error) {
	if activeCodec == nil {
		return nil, newError(op, "no GPR codec installed; build with the gprsdk tag or call SetCodec")
	}
	return activeCodec, nil
}
