package templatestore

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Minimal NPY v1.0 codec for little-endian float32 vectors. The artifact
// files must stay readable by the numpy-based analysis tooling, and the
// format is a fixed header plus raw data, so no dependency is warranted.

var npyMagic = []byte("\x93NUMPY")

// encodeNPY writes vec as a one-dimensional float32 array.
func encodeNPY(w io.Writer, vec []float32) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d,), }", len(vec))

	// Total header (magic + version + length field + dict + padding + \n)
	// must be a multiple of 64.
	base := len(npyMagic) + 2 + 2
	total := base + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	if _, err := w.Write(npyMagic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, vec)
}

// decodeNPY reads a one-dimensional float32 array written by encodeNPY or
// by numpy itself.
func decodeNPY(r io.Reader) ([]float32, error) {
	magic := make([]byte, 6)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, err
	}
	if string(magic) != string(npyMagic) {
		return nil, fmt.Errorf("not an npy file")
	}

	version := make([]byte, 2)
	if _, err := io.ReadFull(r, version); err != nil {
		return nil, err
	}
	if version[0] != 1 {
		return nil, fmt.Errorf("unsupported npy version %d.%d", version[0], version[1])
	}

	var headerLen uint16
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, err
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	dict := string(header)
	if !strings.Contains(dict, "'<f4'") {
		return nil, fmt.Errorf("unsupported npy dtype: %s", dict)
	}
	if strings.Contains(dict, "'fortran_order': True") {
		return nil, fmt.Errorf("fortran order not supported")
	}

	n, err := parseShape(dict)
	if err != nil {
		return nil, err
	}

	vec := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func parseShape(dict string) (int, error) {
	start := strings.Index(dict, "'shape':")
	if start < 0 {
		return 0, fmt.Errorf("npy header missing shape")
	}
	open := strings.Index(dict[start:], "(")
	close := strings.Index(dict[start:], ")")
	if open < 0 || close < 0 || close < open {
		return 0, fmt.Errorf("malformed npy shape")
	}
	inner := strings.TrimSpace(dict[start+open+1 : start+close])
	inner = strings.TrimSuffix(inner, ",")
	if strings.Contains(inner, ",") {
		return 0, fmt.Errorf("only one-dimensional arrays supported")
	}

	var n int
	if _, err := fmt.Sscanf(strings.TrimSpace(inner), "%d", &n); err != nil {
		return 0, fmt.Errorf("malformed npy shape: %w", err)
	}
	return n, nil
}
