package gpr

// conversion binds an operation name to the codec call that performs it.
// The four conversion pairs share one driver and differ only here.
type conversion struct {
	op         string
	usesParams bool
	run        func(c Codec, a Allocator, p *Parameters, input, output *Buffer) bool
}

var (
	convGPRToDNG = conversion{
		op:         "convert_gpr_to_dng",
		usesParams: true,
		run: func(c Codec, a Allocator, p *Parameters, in, out *Buffer) bool {
			return c.ConvertGPRToDNG(a, p, in, out)
		},
	}
	convDNGToGPR = conversion{
		op:         "convert_dng_to_gpr",
		usesParams: true,
		run: func(c Codec, a Allocator, p *Parameters, in, out *Buffer) bool {
			return c.ConvertDNGToGPR(a, p, in, out)
		},
	}
	convGPRToRAW = conversion{
		op: "convert_gpr_to_raw",
		run: func(c Codec, a Allocator, _ *Parameters, in, out *Buffer) bool {
			return c.ConvertGPRToRAW(a, in, out)
		},
	}
	convDNGToDNG = conversion{
		op:         "convert_dng_to_dng",
		usesParams: true,
		run: func(c Codec, a Allocator, p *Parameters, in, out *Buffer) bool {
			return c.ConvertDNGToDNG(a, p, in, out)
		},
	}
)

// prepareFunc runs between parameter defaulting and the codec call. The
// metadata mutator uses it to parse the input and apply field updates.
type prepareFunc func(c Codec, a Allocator, input *Buffer, p *Parameters) error

// ConvertGPRToDNG converts a GPR file into a DNG file.
func ConvertGPRToDNG(inputPath, outputPath string) error {
	return convertFile(convGPRToDNG, inputPath, outputPath, nil)
}

// ConvertDNGToGPR converts a DNG file into a GPR file.
func ConvertDNGToGPR(inputPath, outputPath string) error {
	return convertFile(convDNGToGPR, inputPath, outputPath, nil)
}

// ConvertGPRToRAW decodes a GPR file into a planar 16-bit RAW file.
func ConvertGPRToRAW(inputPath, outputPath string) error {
	return convertFile(convGPRToRAW, inputPath, outputPath, nil)
}

// ConvertDNGToDNG re-encodes a DNG file. With default parameters the
// re-encode is idempotent: feeding the output back in reproduces it
// byte for byte.
func ConvertDNGToDNG(inputPath, outputPath string) error {
	return convertFile(convDNGToDNG, inputPath, outputPath, nil)
}

// convertFile is the shared driver: validate, read, default parameters,
// convert, check the output, write. Each owned resource has exactly one
// deferred release, so every exit path, including a panicking codec,
// releases everything exactly once.
func convertFile(cv conversion, inputPath, outputPath string, prepare prepareFunc) (err error) {
	c, err := requireCodec(cv.op)
	if err != nil {
		return err
	}
	if err := ValidateInput(inputPath); err != nil {
		return annotate(err, cv.op, inputPath, outputPath)
	}

	alloc := c.Allocator()

	defer func() {
		if r := recover(); r != nil {
			err = newConversionError(cv.op, "unknown error in codec", inputPath, outputPath)
		}
	}()

	inBuf, err := ReadFile(inputPath, alloc)
	if err != nil {
		return annotate(err, cv.op, inputPath, outputPath)
	}
	defer inBuf.Release(alloc)

	var outBuf Buffer
	defer outBuf.Release(alloc)

	var params Parameters
	paramsInitialized := false
	defer func() {
		if paramsInitialized {
			c.ParametersDestroy(&params, alloc.Free)
		}
	}()

	pp := (*Parameters)(nil)
	if cv.usesParams {
		if err := c.ParametersSetDefaults(&params); err != nil {
			return annotate(newParameterError("", "cannot initialize codec parameters: "+err.Error()),
				cv.op, inputPath, outputPath)
		}
		paramsInitialized = true
		if prepare != nil {
			if err := prepare(c, alloc, &inBuf, &params); err != nil {
				return annotate(err, cv.op, inputPath, outputPath)
			}
		}
		pp = &params
	}

	if !cv.run(c, alloc, pp, &inBuf, &outBuf) {
		return newConversionError(cv.op, "codec reported conversion failure", inputPath, outputPath)
	}
	if outBuf.Empty() {
		return newConversionError(cv.op, "codec produced an empty output buffer", inputPath, outputPath)
	}

	if err := WriteFile(&outBuf, outputPath); err != nil {
		return annotate(err, cv.op, inputPath, outputPath)
	}
	return nil
}

// convertToBuffer runs the driver up to the output check and hands the
// produced buffer to sink before the deferred releases run. The sink must
// copy anything it wants to keep.
func convertToBuffer(cv conversion, inputPath string, sink func(out *Buffer) error) (err error) {
	c, err := requireCodec(cv.op)
	if err != nil {
		return err
	}
	if err := ValidateInput(inputPath); err != nil {
		return annotate(err, cv.op, inputPath, "")
	}

	alloc := c.Allocator()

	defer func() {
		if r := recover(); r != nil {
			err = newConversionError(cv.op, "unknown error in codec", inputPath, "")
		}
	}()

	inBuf, err := ReadFile(inputPath, alloc)
	if err != nil {
		return annotate(err, cv.op, inputPath, "")
	}
	defer inBuf.Release(alloc)

	var outBuf Buffer
	defer outBuf.Release(alloc)

	var params Parameters
	paramsInitialized := false
	defer func() {
		if paramsInitialized {
			c.ParametersDestroy(&params, alloc.Free)
		}
	}()

	pp := (*Parameters)(nil)
	if cv.usesParams {
		if err := c.ParametersSetDefaults(&params); err != nil {
			return annotate(newParameterError("", "cannot initialize codec parameters: "+err.Error()),
				cv.op, inputPath, "")
		}
		paramsInitialized = true
		pp = &params
	}

	if !cv.run(c, alloc, pp, &inBuf, &outBuf) {
		return newConversionError(cv.op, "codec reported conversion failure", inputPath, "")
	}
	if outBuf.Empty() {
		return newConversionError(cv.op, "codec produced an empty output buffer", inputPath, "")
	}
	return sink(&outBuf)
}
