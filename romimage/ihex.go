package romimage

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Intel HEX record types.
const (
	RecordData           = 0x00
	RecordEOF            = 0x01
	RecordExtSegmentAddr = 0x02
	RecordStartSegment   = 0x03
	RecordExtLinearAddr  = 0x04
	RecordStartLinear    = 0x05
)

// recordOverhead is byte count + address + type + checksum.
const recordOverhead = 5

// ParseIntelHex reads an Intel HEX image. Record addresses are made relative
// to base; a record below base or ending past base+MaxSize is an error.
func ParseIntelHex(r io.Reader, base uint32) (*Image, error) {
	scanner := bufio.NewScanner(r)

	var (
		data    []byte
		upper   uint32 // extended linear or segment base
		lineNum int
		sawEOF  bool
		sawData bool
	)

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines
		if line == "" {
			continue
		}
		if sawEOF {
			return nil, fmt.Errorf("line %d: data after end of file record", lineNum)
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		switch rec.kind {
		case RecordData:
			addr := upper + uint32(rec.addr)
			if addr < base {
				return nil, fmt.Errorf("line %d: address 0x%08X is below base 0x%08X", lineNum, addr, base)
			}
			off := int(addr - base)
			end := off + len(rec.data)
			if end > MaxSize {
				return nil, fmt.Errorf("line %d: %w", lineNum, &TooLargeError{Size: end, Limit: MaxSize})
			}
			for len(data) < end {
				data = append(data, ErasedByte)
			}
			copy(data[off:], rec.data)
			sawData = true

		case RecordEOF:
			sawEOF = true

		case RecordExtSegmentAddr, RecordExtLinearAddr:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: address record has %d data bytes, expected 2", lineNum, len(rec.data))
			}
			v := uint32(rec.data[0])<<8 | uint32(rec.data[1])
			if rec.kind == RecordExtSegmentAddr {
				upper = v << 4
			} else {
				upper = v << 16
			}

		case RecordStartSegment, RecordStartLinear:
			// Entry points mean nothing to a flash image.

		default:
			return nil, fmt.Errorf("line %d: unsupported record type 0x%02X", lineNum, rec.kind)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !sawEOF {
		return nil, fmt.Errorf("missing end of file record")
	}
	if !sawData {
		return nil, fmt.Errorf("no data records found in file")
	}

	return &Image{Data: data, Format: FormatIntelHex}, nil
}

type record struct {
	kind byte
	addr uint16
	data []byte
}

// parseRecord parses one record line.
//
// Record format:
//
//	:[ByteCount(1)][Address(2)][Type(1)][Data(N)][Checksum(1)]
//
// Address is big-endian. The checksum is the two's complement of the sum of
// all preceding bytes.
func parseRecord(line string) (*record, error) {
	if line[0] != ':' {
		return nil, fmt.Errorf("record does not start with ':'")
	}

	raw, err := hex.DecodeString(line[1:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	if len(raw) < recordOverhead {
		return nil, fmt.Errorf("record too short: got %d bytes, minimum is %d", len(raw), recordOverhead)
	}

	count := int(raw[0])
	if len(raw) != count+recordOverhead {
		return nil, fmt.Errorf("data length mismatch: got %d bytes, expected %d", len(raw), count+recordOverhead)
	}

	checksum := raw[len(raw)-1]
	if calculated := calculateChecksum(raw[:len(raw)-1]); checksum != calculated {
		return nil, fmt.Errorf("checksum mismatch: got 0x%02X, expected 0x%02X", checksum, calculated)
	}

	return &record{
		kind: raw[3],
		addr: uint16(raw[1])<<8 | uint16(raw[2]),
		data: raw[4 : 4+count],
	}, nil
}

// calculateChecksum computes the two's complement of the byte sum.
func calculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}

// bytesPerRecord is the data length of records written by WriteIntelHex.
const bytesPerRecord = 16

// WriteIntelHex writes data as Intel HEX with addresses starting at base.
// Records holding only erased bytes are omitted since ParseIntelHex fills
// gaps with ErasedByte.
func WriteIntelHex(w io.Writer, data []byte, base uint32) error {
	bw := bufio.NewWriter(w)
	upper := uint32(0)
	first := true

	for off := 0; off < len(data); {
		addr := base + uint32(off)
		// A record may not cross a 64 KiB segment.
		end := min(off+bytesPerRecord, len(data), off+int(0x10000-(addr&0xFFFF)))
		chunk := data[off:end]
		off = end
		if isErased(chunk) {
			continue
		}

		if first || addr&0xFFFF0000 != upper {
			upper = addr & 0xFFFF0000
			writeRecord(bw, RecordExtLinearAddr, 0, []byte{byte(upper >> 24), byte(upper >> 16)})
			first = false
		}
		writeRecord(bw, RecordData, uint16(addr), chunk)
	}
	writeRecord(bw, RecordEOF, 0, nil)

	return bw.Flush()
}

func writeRecord(w *bufio.Writer, kind byte, addr uint16, data []byte) {
	raw := make([]byte, 0, len(data)+recordOverhead)
	raw = append(raw, byte(len(data)), byte(addr>>8), byte(addr), kind)
	raw = append(raw, data...)
	raw = append(raw, calculateChecksum(raw))

	w.WriteByte(':')
	w.WriteString(strings.ToUpper(hex.EncodeToString(raw)))
	w.WriteByte('\n')
}

func isErased(b []byte) bool {
	for _, v := range b {
		if v != ErasedByte {
			return false
		}
	}
	return true
}
