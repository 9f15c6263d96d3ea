package volumeio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"radiomics3d/pkg/features"
)

// Record is one extraction result labelled with its case identifier
type Record struct {
	ID  string
	Row features.Row
}

// WriteCSV writes one header line and one line per record. Columns are the
// sorted union of all feature keys; missing and undefined values print as NA.
func WriteCSV(w io.Writer, records []Record) error {
	union := make(features.Row)
	for _, r := range records {
		for k := range r.Row {
			union[k] = features.Undefined()
		}
	}
	keys := union.Keys()

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, keys...)); err != nil {
		return err
	}
	line := make([]string, len(keys)+1)
	for _, r := range records {
		line[0] = r.ID
		for i, k := range keys {
			line[i+1] = r.Row[k].String()
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the records to a file
func SaveCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("error writing output file: %w", err)
	}
	return f.Close()
}
