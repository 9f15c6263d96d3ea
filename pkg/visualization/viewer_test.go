package visualization

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"radiomics3d/internal/models"
)

func testGrid(w, h, d int) models.Grid {
	return models.Grid{Width: w, Height: h, Depth: d, Spacing: models.Vec3{X: 1, Y: 1, Z: 2}}
}

// zRamp fills each slice along Z with its own value, from -100 upwards
func zRamp(g models.Grid) []float64 {
	data := make([]float64, g.Len())
	for i := range data {
		_, _, z := g.Coords(i)
		data[i] = -100 + 50*float64(z)
	}
	return data
}

// TestNewViewer verifies the data length check
func TestNewViewer(t *testing.T) {
	g := testGrid(4, 3, 2)
	if _, err := NewViewer(make([]float64, 5), g); err == nil {
		t.Errorf("Expected an error for mismatched data length")
	}
	v, err := NewViewer(zRamp(g), g)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}
	if v.lo != -100 || v.hi != -50 {
		t.Errorf("Expected range [-100, -50], got [%f, %f]", v.lo, v.hi)
	}
}

// TestExtractSlice verifies slice dimensions and value scaling
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	g := testGrid(width, height, depth)
	viewer, err := NewViewer(zRamp(g), g)
	if err != nil {
		t.Fatalf("NewViewer failed: %v", err)
	}

	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}
		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		gray, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}
		want := uint16(65535 * z / (depth - 1))
		got := gray.Gray16At(width/2, height/2).Y
		if diff := int(got) - int(want); diff < -1 || diff > 1 {
			t.Errorf("Z slice %d: expected value ~%d, got %d", z, want, got)
		}
	}

	imgX, err := viewer.ExtractSlice("x", width/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}

	imgY, err := viewer.ExtractSlice("y", height/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	for _, tc := range []struct {
		axis string
		pos  int
	}{{"z", depth}, {"x", -1}, {"w", 0}} {
		if _, err := viewer.ExtractSlice(tc.axis, tc.pos); err == nil {
			t.Errorf("Expected an error for axis %s at %d", tc.axis, tc.pos)
		}
	}
}

// TestFromLevels checks that voxels outside the ROI render black and the
// highest level renders white
func TestFromLevels(t *testing.T) {
	dv := &models.DiscretizedVolume{
		Grid:      testGrid(3, 1, 1),
		Levels:    []int{models.Undefined, 1, 4},
		NumLevels: 4,
	}
	v, err := FromLevels(dv)
	if err != nil {
		t.Fatalf("FromLevels failed: %v", err)
	}
	img, _ := v.ExtractSlice("z", 0)
	gray := img.(*image.Gray16)
	if gray.Gray16At(0, 0).Y != 0 || gray.Gray16At(2, 0).Y != 65535 {
		t.Errorf("Unexpected level rendering: %v %v", gray.Gray16At(0, 0), gray.Gray16At(2, 0))
	}
}

// TestUniformVolume checks that a constant volume renders black
func TestUniformVolume(t *testing.T) {
	g := testGrid(2, 2, 1)
	v, _ := FromROI([]bool{true, true, true, true}, g)
	img, _ := v.ExtractSlice("z", 0)
	if y := img.(*image.Gray16).Gray16At(1, 1).Y; y != 0 {
		t.Errorf("Expected 0 for a uniform volume, got %d", y)
	}
}

// TestSaveSliceSequence writes every Z slice and reads one back
func TestSaveSliceSequence(t *testing.T) {
	g := testGrid(6, 4, 3)
	vol, err := models.NewVolume(zRamp(g), g)
	if err != nil {
		t.Fatalf("NewVolume failed: %v", err)
	}
	viewer, err := FromVolume(vol)
	if err != nil {
		t.Fatalf("FromVolume failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("z", dir); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}

	for z := 0; z < g.Depth; z++ {
		path := filepath.Join(dir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Missing slice file %s: %v", path, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "slice_z_002.png"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Decoding the slice failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != 4 {
		t.Errorf("Unexpected slice size %v", b)
	}

	if err := viewer.SaveSliceSequence("q", dir); err == nil {
		t.Errorf("Expected an error for an invalid axis")
	}
}

// TestSaveSliceJPEG checks the JPEG fallback
func TestSaveSliceJPEG(t *testing.T) {
	g := testGrid(8, 8, 1)
	viewer, _ := NewViewer(zRamp(g), g)
	img, _ := viewer.ExtractSlice("z", 0)
	path := filepath.Join(t.TempDir(), "slice.jpg")
	if err := viewer.SaveSlice(img, path); err != nil {
		t.Fatalf("SaveSlice failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("Expected a non-empty JPEG file: %v", err)
	}
}
