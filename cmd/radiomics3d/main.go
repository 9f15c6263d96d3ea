package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/config"
	"radiomics3d/pkg/logging"
	"radiomics3d/pkg/radiomics"
	"radiomics3d/pkg/volumeio"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "radiomics.yaml", "Configuration file (.yaml or .toml)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	volumePath := flag.String("volume", "", "Raw little-endian intensity volume")
	maskPath := flag.String("mask", "", "Raw little-endian label mask")
	volumeType := flag.String("volume-type", "int16", "Voxel type of the volume file")
	maskType := flag.String("mask-type", "uint8", "Voxel type of the mask file")
	dims := flag.String("dims", "", "Grid dimensions as WxHxD")
	spacing := flag.String("spacing", "1x1x1", "Voxel spacing in mm as XxYxZ")
	caseID := flag.String("id", "", "Case identifier for the output row (default: volume file name)")
	outputPath := flag.String("output", "", "Output CSV file (default: stdout)")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	// Validate inputs
	if *volumePath == "" || *maskPath == "" || *dims == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger, closer := logging.NewFromConfig(cfg.LogFile(), level)
	fatalf := newFatalf(logger, closer, os.Exit)

	params, err := radiomics.ParamsFromConfig(cfg)
	if err != nil {
		fatalf("Invalid config: %v", err)
	}

	grid, err := parseGrid(*dims, *spacing)
	if err != nil {
		fatalf("Invalid grid: %v", err)
	}
	vt, err := volumeio.ParseDataType(*volumeType)
	if err != nil {
		fatalf("Invalid volume type: %v", err)
	}
	mt, err := volumeio.ParseDataType(*maskType)
	if err != nil {
		fatalf("Invalid mask type: %v", err)
	}

	vol, err := volumeio.ReadVolume(*volumePath, grid, vt)
	if err != nil {
		fatalf("Failed to read volume: %v", err)
	}
	mask, err := volumeio.ReadMask(*maskPath, grid, mt)
	if err != nil {
		fatalf("Failed to read mask: %v", err)
	}
	logger.Infof("Loaded %s voxel volume (%s) with %s ROI voxels",
		humanize.Comma(int64(grid.Len())), humanize.Bytes(uint64(grid.Len()*vt.Size())),
		humanize.Comma(int64(mask.Count(params.Label))))

	extractor, err := radiomics.NewExtractor(params, logger)
	if err != nil {
		fatalf("Invalid parameters: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startTime := time.Now()
	row, err := extractor.Extract(ctx, vol, mask)
	if err != nil {
		fatalf("Extraction failed: %v", err)
	}
	logger.Infof("Extraction completed in %s", time.Since(startTime).Round(time.Millisecond))

	id := *caseID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(*volumePath), filepath.Ext(*volumePath))
	}
	records := []volumeio.Record{{ID: id, Row: row}}

	if *outputPath == "" {
		if err := volumeio.WriteCSV(os.Stdout, records); err != nil {
			fatalf("Failed to write features: %v", err)
		}
		closer.Close()
		return
	}
	if err := volumeio.SaveCSV(*outputPath, records); err != nil {
		fatalf("Failed to write features: %v", err)
	}
	logger.Infof("%d features saved to %s", len(row), *outputPath)
	closer.Close()
}

// newFatalf returns a log.Fatalf replacement for use once the logger exists.
// It logs the message, closes the log file and exits with status 1.
func newFatalf(logger logging.Logger, closer io.Closer, exit func(int)) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		logger.Errorf(format, args...)
		closer.Close()
		fmt.Fprintf(os.Stderr, format+"\n", args...)
		exit(1)
	}
}

// parseGrid builds a grid from "WxHxD" dimensions and "XxYxZ" spacing
func parseGrid(dims, spacing string) (models.Grid, error) {
	var g models.Grid
	d, err := splitTriple(dims)
	if err != nil {
		return g, fmt.Errorf("dimensions %q: %v", dims, err)
	}
	s, err := splitTriple(spacing)
	if err != nil {
		return g, fmt.Errorf("spacing %q: %v", spacing, err)
	}
	g.Width, g.Height, g.Depth = int(d[0]), int(d[1]), int(d[2])
	g.Spacing = models.Vec3{X: s[0], Y: s[1], Z: s[2]}
	if float64(g.Width) != d[0] || float64(g.Height) != d[1] || float64(g.Depth) != d[2] ||
		g.Width < 1 || g.Height < 1 || g.Depth < 1 || !g.Spacing.Positive() {
		return g, fmt.Errorf("%w: grid %s with spacing %s", models.ErrInvalidInput, dims, spacing)
	}
	return g, nil
}

func splitTriple(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected 3 values separated by x")
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
