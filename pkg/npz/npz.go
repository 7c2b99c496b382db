// Package npz reads and writes NumPy .npz archives: a zip of .npy arrays.
// Only little-endian float32 and int32 arrays in C order are supported,
// which is all the mesh format needs.
package npz

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Dtype is a NumPy array-protocol type string.
type Dtype string

const (
	Float32 Dtype = "<f4"
	Int32   Dtype = "<i4"
)

var npyMagic = []byte("\x93NUMPY")

// headerAlign is the alignment numpy uses for the data offset.
const headerAlign = 64

// ErrUnsupported is returned for arrays this package cannot decode.
var ErrUnsupported = errors.New("npz: unsupported array")

// Array is one decoded array. Exactly one of Float32s and Int32s is set,
// according to Dtype.
type Array struct {
	Name     string
	Dtype    Dtype
	Shape    []int
	Float32s []float32
	Int32s   []int32
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a.Dtype == Float32 {
		return len(a.Float32s)
	}
	return len(a.Int32s)
}

// Writer writes arrays into a deflate-compressed archive.
type Writer struct {
	zw *zip.Writer
}

// NewWriter returns a Writer on w. Close must be called to finish the
// archive.
func NewWriter(w io.Writer) *Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	return &Writer{zw: zw}
}

// WriteFloat32 adds name.npy holding data with the given shape.
func (w *Writer) WriteFloat32(name string, shape []int, data []float32) error {
	if err := checkShape(shape, len(data)); err != nil {
		return fmt.Errorf("npz: %s: %w", name, err)
	}
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return w.write(name, Float32, shape, buf)
}

// WriteInt32 adds name.npy holding data with the given shape.
func (w *Writer) WriteInt32(name string, shape []int, data []int32) error {
	if err := checkShape(shape, len(data)); err != nil {
		return fmt.Errorf("npz: %s: %w", name, err)
	}
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return w.write(name, Int32, shape, buf)
}

func (w *Writer) write(name string, dt Dtype, shape []int, data []byte) error {
	f, err := w.zw.CreateHeader(&zip.FileHeader{Name: name + ".npy", Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("npz: %s: %w", name, err)
	}
	if _, err := f.Write(header(dt, shape)); err != nil {
		return fmt.Errorf("npz: %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("npz: %s: %w", name, err)
	}
	return nil
}

// Close finishes the archive. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}

func checkShape(shape []int, n int) error {
	want := 1
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", shape)
		}
		want *= d
	}
	if want != n {
		return fmt.Errorf("shape %v needs %d elements, got %d", shape, want, n)
	}
	return nil
}

// header builds a version 1.0 .npy header.
func header(dt Dtype, shape []int) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	tuple := strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", dt, tuple)

	// magic(6) + version(2) + length(2) + dict + padding + '\n'
	pre := len(npyMagic) + 4
	total := pre + len(dict) + 1
	if rem := total % headerAlign; rem != 0 {
		total += headerAlign - rem
	}
	hlen := total - pre

	var b bytes.Buffer
	b.Write(npyMagic)
	b.Write([]byte{1, 0})
	binary.Write(&b, binary.LittleEndian, uint16(hlen))
	b.WriteString(dict)
	b.WriteString(strings.Repeat(" ", hlen-len(dict)-1))
	b.WriteByte('\n')
	return b.Bytes()
}

var (
	descrPattern   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranPattern = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapePattern   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ReadFile decodes every array in the archive at path, keyed by name
// without the .npy suffix.
func ReadFile(path string) (map[string]*Array, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("npz: open %s: %w", path, err)
	}
	defer zr.Close()
	return readZip(&zr.Reader)
}

// Read decodes every array in an archive held in r.
func Read(r io.ReaderAt, size int64) (map[string]*Array, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("npz: %w", err)
	}
	return readZip(zr)
}

func readZip(zr *zip.Reader) (map[string]*Array, error) {
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	out := make(map[string]*Array, len(zr.File))
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, ".npy")
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("npz: %s: %w", name, err)
		}
		arr, err := readNpy(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("npz: %s: %w", name, err)
		}
		arr.Name = name
		out[name] = arr
	}
	return out, nil
}

func readNpy(r io.Reader) (*Array, error) {
	pre := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, pre); err != nil {
		return nil, err
	}
	if !bytes.Equal(pre[:len(npyMagic)], npyMagic) {
		return nil, errors.New("not an npy array")
	}

	var hlen int
	switch major := pre[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		hlen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		hlen = int(n)
	default:
		return nil, fmt.Errorf("%w: format version %d", ErrUnsupported, major)
	}

	hdr := make([]byte, hlen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	arr, err := parseHeader(string(hdr))
	if err != nil {
		return nil, err
	}

	n := 1
	for _, d := range arr.Shape {
		n *= d
	}
	data := make([]byte, 4*n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("reading %d elements: %w", n, err)
	}
	switch arr.Dtype {
	case Float32:
		arr.Float32s = make([]float32, n)
		for i := range arr.Float32s {
			arr.Float32s[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
		}
	case Int32:
		arr.Int32s = make([]int32, n)
		for i := range arr.Int32s {
			arr.Int32s[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
		}
	}
	return arr, nil
}

func parseHeader(h string) (*Array, error) {
	m := descrPattern.FindStringSubmatch(h)
	if m == nil {
		return nil, errors.New("header has no descr")
	}
	dt := Dtype(m[1])
	if dt != Float32 && dt != Int32 {
		return nil, fmt.Errorf("%w: dtype %s", ErrUnsupported, dt)
	}
	if m := fortranPattern.FindStringSubmatch(h); m != nil && m[1] == "True" {
		return nil, fmt.Errorf("%w: fortran order", ErrUnsupported)
	}
	m = shapePattern.FindStringSubmatch(h)
	if m == nil {
		return nil, errors.New("header has no shape")
	}
	var shape []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("bad shape dimension %q", part)
		}
		shape = append(shape, d)
	}
	return &Array{Dtype: dt, Shape: shape}, nil
}

// WriteFile writes arrays produced by fill to a new archive at path. The
// file is removed again if fill or closing fails.
func WriteFile(path string, fill func(*Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npz: create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(path)
		}
	}()

	w := NewWriter(f)
	if err = fill(w); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("npz: %s: %w", path, err)
	}
	return f.Close()
}
