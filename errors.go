package gpr

import "fmt"

// Numeric error codes surfaced alongside the structured error kinds.
// A code of CodeNone means the failure has no more specific classification.
const (
	CodeNone           = 0
	CodeFileNotFound   = -2
	CodeFilePermission = -3
	CodeFileCorrupted  = -4
	CodeMemory         = -10
	CodeParameter      = -20
	CodeFormat         = -30
)

// baseError carries the fields every kind shares. The embedded field must
// not be named Error: that would shadow the promoted Error method and take
// the derived kinds out of the error interface.
type baseError struct {
	Op      string // operation that failed, e.g. "convert_gpr_to_dng"
	Message string
	Code    int
}

func (e *baseError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Code != CodeNone {
		msg = fmt.Sprintf("[%d] %s", e.Code, msg)
	}
	return msg
}

// Error is the base kind of the taxonomy. It is returned directly only for
// setup failures (missing codec, bad call arguments outside a known field);
// everything classifiable uses one of the specific kinds below.
type Error struct {
	baseError
}

// ConversionError reports a codec-level conversion failure, including an
// empty output buffer after a conversion the codec claimed succeeded.
type ConversionError struct {
	baseError
	InputPath  string
	OutputPath string
}

// FileError reports a failure tied to a concrete path: missing, empty or
// unreadable input, or a failed write.
type FileError struct {
	baseError
	Path string
}

// MemoryError reports an allocation failure from the codec allocator or
// from building the projected pixel array.
type MemoryError struct {
	baseError
	RequestedSize int
}

// ParameterError reports an invalid parameter value. Field names the
// offending parameter when known.
type ParameterError struct {
	baseError
	Field string
}

// FormatError reports malformed or unexpected container contents, such as
// a RAW plane smaller than the probed dimensions demand.
type FormatError struct {
	baseError
	Format string
}

func newError(op, msg string) *Error {
	return &Error{baseError{Op: op, Message: msg}}
}

func newConversionError(op, msg, inputPath, outputPath string) *ConversionError {
	return &ConversionError{
		baseError:  baseError{Op: op, Message: msg},
		InputPath:  inputPath,
		OutputPath: outputPath,
	}
}

func newFileError(path string, code int, msg string) *FileError {
	return &FileError{
		baseError: baseError{Message: msg, Code: code},
		Path:      path,
	}
}

func newMemoryError(msg string, requested int) *MemoryError {
	return &MemoryError{
		baseError:     baseError{Message: msg, Code: CodeMemory},
		RequestedSize: requested,
	}
}

func newParameterError(field, msg string) *ParameterError {
	return &ParameterError{
		baseError: baseError{Message: msg, Code: CodeParameter},
		Field:     field,
	}
}

func newFormatError(format, msg string) *FormatError {
	return &FormatError{
		baseError: baseError{Message: msg, Code: CodeFormat},
		Format:    format,
	}
}

// annotate attaches operation context to a taxonomy error without changing
// its kind. Errors from deeper frames keep the context closest to the
// failure; only empty fields are filled in.
func annotate(err error, op, inputPath, outputPath string) error {
	switch e := err.(type) {
	case *ConversionError:
		if e.Op == "" {
			e.Op = op
		}
		if e.InputPath == "" {
			e.InputPath = inputPath
		}
		if e.OutputPath == "" {
			e.OutputPath = outputPath
		}
	case *FileError:
		if e.Op == "" {
			e.Op = op
		}
	case *MemoryError:
		if e.Op == "" {
			e.Op = op
		}
	case *ParameterError:
		if e.Op == "" {
			e.Op = op
		}
	case *FormatError:
		if e.Op == "" {
			e.Op = op
		}
	case *Error:
		if e.Op == "" {
			e.Op = op
		}
	default:
		// Non-taxonomy errors are wrapped as conversion failures so that no
		// failure escapes unclassified.
		return newConversionError(op, err.Error(), inputPath, outputPath)
	}
	return err
}
