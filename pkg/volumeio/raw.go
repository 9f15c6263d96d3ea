// Package volumeio reads raw little-endian voxel files into volumes and masks
// and writes extraction results as CSV.
package volumeio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"radiomics3d/internal/models"
)

// DataType is the voxel encoding of a raw file
type DataType int

const (
	Uint8 DataType = iota
	Int16
	Uint16
	Int32
	Float32
	Float64
)

var dataTypeNames = map[DataType]string{
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Float32: "float32",
	Float64: "float64",
}

func (d DataType) String() string {
	if s, ok := dataTypeNames[d]; ok {
		return s
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// Size returns the number of bytes per voxel
func (d DataType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Float32:
		return 4
	default:
		return 8
	}
}

// ParseDataType converts a flag value into a DataType
func ParseDataType(s string) (DataType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d, name := range dataTypeNames {
		if name == key {
			return d, nil
		}
	}
	return Uint8, fmt.Errorf("unknown voxel type %q", s)
}

// decode reads exactly n voxels of type d
func decode(r io.Reader, d DataType, n int) ([]float64, error) {
	out := make([]float64, n)
	var err error
	switch d {
	case Uint8:
		buf := make([]uint8, n)
		if err = binary.Read(r, binary.LittleEndian, buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case Int16:
		buf := make([]int16, n)
		if err = binary.Read(r, binary.LittleEndian, buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case Uint16:
		buf := make([]uint16, n)
		if err = binary.Read(r, binary.LittleEndian, buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case Int32:
		buf := make([]int32, n)
		if err = binary.Read(r, binary.LittleEndian, buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case Float32:
		buf := make([]float32, n)
		if err = binary.Read(r, binary.LittleEndian, buf); err == nil {
			for i, v := range buf {
				out[i] = float64(v)
			}
		}
	case Float64:
		err = binary.Read(r, binary.LittleEndian, out)
	default:
		return nil, fmt.Errorf("%w: unsupported voxel type %v", models.ErrInvalidInput, d)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %d %v voxels: %v", models.ErrInvalidInput, n, d, err)
	}
	return out, nil
}

// readRaw reads a whole raw file and checks that its size matches the grid
func readRaw(path string, grid models.Grid, d DataType) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if want := int64(grid.Len() * d.Size()); info.Size() != want {
		return nil, fmt.Errorf("%w: %s holds %d bytes, a %dx%dx%d %v grid needs %d", models.ErrInvalidInput,
			path, info.Size(), grid.Width, grid.Height, grid.Depth, d, want)
	}
	return decode(bufio.NewReader(f), d, grid.Len())
}

// ReadVolume loads an intensity volume from a raw file
func ReadVolume(path string, grid models.Grid, d DataType) (models.Volume, error) {
	data, err := readRaw(path, grid, d)
	if err != nil {
		return models.Volume{}, err
	}
	return models.NewVolume(data, grid)
}

// ReadMask loads a label mask from a raw file of an integer type
func ReadMask(path string, grid models.Grid, d DataType) (models.Mask, error) {
	if d == Float32 || d == Float64 {
		return models.Mask{}, fmt.Errorf("%w: masks need an integer voxel type, got %v", models.ErrInvalidInput, d)
	}
	data, err := readRaw(path, grid, d)
	if err != nil {
		return models.Mask{}, err
	}
	labels := make([]int, len(data))
	for i, v := range data {
		labels[i] = int(math.Round(v))
	}
	return models.NewMask(labels, grid)
}

// WriteRaw stores values in a raw little-endian file of type d. Values are
// converted with Go's numeric conversion rules.
func WriteRaw(path string, values []float64, d DataType) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	var data interface{}
	switch d {
	case Uint8:
		buf := make([]uint8, len(values))
		for i, v := range values {
			buf[i] = uint8(v)
		}
		data = buf
	case Int16:
		buf := make([]int16, len(values))
		for i, v := range values {
			buf[i] = int16(v)
		}
		data = buf
	case Uint16:
		buf := make([]uint16, len(values))
		for i, v := range values {
			buf[i] = uint16(v)
		}
		data = buf
	case Int32:
		buf := make([]int32, len(values))
		for i, v := range values {
			buf[i] = int32(v)
		}
		data = buf
	case Float32:
		buf := make([]float32, len(values))
		for i, v := range values {
			buf[i] = float32(v)
		}
		data = buf
	default:
		data = values
	}

	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
