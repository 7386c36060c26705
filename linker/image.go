package linker

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Segment is one contiguous run of defined bytes.
type Segment struct {
	Base uint32
	Data []byte
}

// Image is the linked address-to-byte mapping. Addresses not covered
// by any segment are undefined; the emulator reads them as zero.
type Image struct {
	Segments []Segment
}

// At returns the byte at an address and whether it is defined.
func (im *Image) At(addr uint32) (value byte, ok bool) {
	for n := range im.Segments {
		seg := &im.Segments[n]
		if addr >= seg.Base && addr-seg.Base < uint32(len(seg.Data)) {
			return seg.Data[addr-seg.Base], true
		}
	}
	return 0, false
}

// add appends bytes, merging with the previous segment when adjacent.
func (im *Image) add(base uint32, data []byte) {
	if n := len(im.Segments); n > 0 {
		prev := &im.Segments[n-1]
		if prev.Base+uint32(len(prev.Data)) == base {
			prev.Data = append(prev.Data, data...)
			return
		}
	}
	im.Segments = append(im.Segments, Segment{Base: base, Data: append([]byte(nil), data...)})
}

// hexRow is the number of bytes per hex image line.
const hexRow = 8

// WriteHex emits the textual image encoding: one "address: bytes" line
// per up to eight bytes, addresses ascending. Undefined addresses are
// not represented.
func (im *Image) WriteHex(w io.Writer) (err error) {
	for _, seg := range im.Segments {
		for row := 0; row < len(seg.Data); row += hexRow {
			end := min(row+hexRow, len(seg.Data))
			_, err = fmt.Fprintf(w, "%08x:", seg.Base+uint32(row))
			if err != nil {
				return
			}
			for _, value := range seg.Data[row:end] {
				_, err = fmt.Fprintf(w, " %02x", value)
				if err != nil {
					return
				}
			}
			_, err = fmt.Fprintln(w)
			if err != nil {
				return
			}
		}
	}
	return
}

// ReadHex parses the textual image encoding back into an image,
// merging contiguous lines into single segments.
func ReadHex(r io.Reader) (im *Image, err error) {
	im = &Image{}
	scanner := bufio.NewScanner(r)
	lineno := 0

	for scanner.Scan() {
		lineno += 1
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasSuffix(fields[0], ":") {
			return nil, &ErrImageLine{LineNo: lineno, Line: line}
		}

		base64, perr := strconv.ParseUint(strings.TrimSuffix(fields[0], ":"), 16, 32)
		if perr != nil {
			return nil, &ErrImageLine{LineNo: lineno, Line: line}
		}

		data := make([]byte, 0, len(fields)-1)
		for _, field := range fields[1:] {
			value, perr := strconv.ParseUint(field, 16, 8)
			if perr != nil {
				return nil, &ErrImageLine{LineNo: lineno, Line: line}
			}
			data = append(data, byte(value))
		}

		im.add(uint32(base64), data)
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}

	sort.Slice(im.Segments, func(i, j int) bool {
		return im.Segments[i].Base < im.Segments[j].Base
	})

	return
}
