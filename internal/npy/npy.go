// Package npy writes float64 arrays in the NumPy .npy/.npz formats so the
// artifact tree (§4.5) is directly loadable by the Python-based viewer and
// notebooks downstream. No repo in the corpus imports a library for this —
// it is a narrow, stable binary format better served by a ~60-line stdlib
// encoder than by pulling in an unrelated dependency (see DESIGN.md).
package npy

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// EncodeFloat64 returns the .npy encoding of a 1D or 2D float64 array in
// row-major order, little-endian, version 1.0 header.
func EncodeFloat64(shape []int, data []float64) ([]byte, error) {
	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(data) {
		return nil, fmt.Errorf("npy: shape %v does not match %d elements", shape, len(data))
	}

	header := npyHeader(shape)
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1) // major version
	buf.WriteByte(0) // minor version

	// header length must make (10 + len(header)) a multiple of 64, padded
	// with spaces and terminated with \n, per the .npy format spec.
	const alignment = 64
	total := 10 + len(header)
	pad := (alignment - total%alignment) % alignment
	for i := 0; i < pad-1; i++ {
		header += " "
	}
	header += "\n"

	hlen := uint16(len(header))
	if err := binary.Write(&buf, binary.LittleEndian, hlen); err != nil {
		return nil, err
	}
	buf.WriteString(header)

	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("npy: encode data: %w", err)
	}
	return buf.Bytes(), nil
}

func npyHeader(shape []int) string {
	shapeStr := "("
	for i, s := range shape {
		if i > 0 {
			shapeStr += ", "
		}
		shapeStr += fmt.Sprint(s)
	}
	if len(shape) == 1 {
		shapeStr += ","
	}
	shapeStr += ")"
	return fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': %s, }", shapeStr)
}

// Array is one named member of an .npz archive.
type Array struct {
	Name  string
	Shape []int
	Data  []float64
}

// WriteNpz writes a zip archive (uncompressed, per the .npz convention)
// containing one member per Array, each named "<Name>.npy".
func WriteNpz(w io.Writer, arrays []Array) error {
	zw := zip.NewWriter(w)
	for _, a := range arrays {
		encoded, err := EncodeFloat64(a.Shape, a.Data)
		if err != nil {
			return fmt.Errorf("npz: %s: %w", a.Name, err)
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: a.Name + ".npy", Method: zip.Store})
		if err != nil {
			return err
		}
		if _, err := fw.Write(encoded); err != nil {
			return err
		}
	}
	return zw.Close()
}

// WriteNpzFile is a convenience wrapper that writes the archive to path.
func WriteNpzFile(path string, arrays []Array) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteNpz(f, arrays)
}
