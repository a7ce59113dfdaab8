package gpr

import "encoding/binary"

// TIFF/DNG tags and types used by the dimension probe. GPR keeps the DNG's
// TIFF structure, so one walk serves both containers.
const (
	tagNewSubfileType = 254
	tagImageWidth     = 256
	tagImageLength    = 257
	tagSubIFDs        = 330

	typeShort = 3
	typeLong  = 4
	typeIFD   = 13
)

// probeDimensions walks the IFD chain of a TIFF-structured container and
// returns the dimensions of the largest image directory, which for DNG and
// GPR is the full-resolution sensor plane (IFD0 itself often describes a
// reduced-resolution thumbnail).
func probeDimensions(data []byte) (width, height int, err error) {
	if len(data) < 8 {
		return 0, 0, newFormatError("tiff", "container too small for a TIFF header")
	}
	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, 0, newFormatError("tiff", "missing TIFF byte-order mark")
	}
	if order.Uint16(data[2:4]) != 42 {
		return 0, 0, newFormatError("tiff", "bad TIFF magic")
	}

	// Walk IFD0, its chain, and any SubIFDs, keeping the largest plane.
	// Visited offsets are tracked so a cyclic chain cannot loop forever.
	pending := []int{int(order.Uint32(data[4:8]))}
	visited := map[int]bool{}
	var bestW, bestH int

	for len(pending) > 0 {
		off := pending[0]
		pending = pending[1:]
		if off <= 0 || visited[off] {
			continue
		}
		visited[off] = true

		w, h, next, subs, err := walkIFD(data, order, off)
		if err != nil {
			return 0, 0, err
		}
		if w*h > bestW*bestH {
			bestW, bestH = w, h
		}
		if next > 0 {
			pending = append(pending, next)
		}
		pending = append(pending, subs...)
	}

	if bestW <= 0 || bestH <= 0 {
		return 0, 0, newFormatError("tiff", "no image directory with dimensions found")
	}
	return bestW, bestH, nil
}

// walkIFD reads one image file directory, returning its dimensions (zero
// when absent), the offset of the next IFD in the chain, and any SubIFD
// offsets it links to.
func walkIFD(data []byte, order binary.ByteOrder, off int) (w, h, next int, subs []int, err error) {
	if off+2 > len(data) {
		return 0, 0, 0, nil, newFormatError("tiff", "IFD offset out of bounds")
	}
	count := int(order.Uint16(data[off : off+2]))
	pos := off + 2
	if pos+count*12+4 > len(data) {
		return 0, 0, 0, nil, newFormatError("tiff", "truncated IFD")
	}

	for i := 0; i < count; i++ {
		entry := data[pos+i*12 : pos+i*12+12]
		tag := order.Uint16(entry[0:2])
		typ := order.Uint16(entry[2:4])
		num := int(order.Uint32(entry[4:8]))

		switch tag {
		case tagImageWidth:
			w = int(entryScalar(entry, order, typ))
		case tagImageLength:
			h = int(entryScalar(entry, order, typ))
		case tagSubIFDs:
			if typ != typeLong && typ != typeIFD {
				continue
			}
			if num == 1 {
				subs = append(subs, int(order.Uint32(entry[8:12])))
				continue
			}
			valOff := int(order.Uint32(entry[8:12]))
			for j := 0; j < num; j++ {
				p := valOff + j*4
				if p+4 > len(data) {
					break
				}
				subs = append(subs, int(order.Uint32(data[p:p+4])))
			}
		}
	}

	next = int(order.Uint32(data[pos+count*12 : pos+count*12+4]))
	return w, h, next, subs, nil
}

// entryScalar reads a single SHORT or LONG stored inline in the value field.
func entryScalar(entry []byte, order binary.ByteOrder, typ uint16) uint32 {
	switch typ {
	case typeShort:
		return uint32(order.Uint16(entry[8:10]))
	case typeLong:
		return order.Uint32(entry[8:12])
	default:
		return 0
	}
}
