// Package export writes run traces as Apache Arrow IPC files: one record
// batch in long form with a row per (unit, step) sample.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/spikenet/internal/store"
)

// Metadata keys attached to the Arrow schema.
const (
	MetaRunID    = "spikenet.run_id"
	MetaScenario = "spikenet.scenario"
	MetaSteps    = "spikenet.steps"
)

// Schema returns the column layout of an export, carrying the run's
// identity as schema metadata.
func Schema(run *store.RunRecord) *arrow.Schema {
	md := arrow.NewMetadata(
		[]string{MetaRunID, MetaScenario, MetaSteps},
		[]string{run.ID, run.Scenario, strconv.Itoa(run.Steps)},
	)
	return arrow.NewSchema([]arrow.Field{
		{Name: "unit", Type: arrow.BinaryTypes.String},
		{Name: "kind", Type: arrow.BinaryTypes.String},
		{Name: "step", Type: arrow.PrimitiveTypes.Int64},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, &md)
}

// WriteArrow writes every sample of run to w as an Arrow IPC file. The
// file footer is written by seeking, so w is usually an *os.File. Units
// without a series (synapses) contribute no rows.
func WriteArrow(w io.WriteSeeker, run *store.RunRecord) error {
	mem := memory.NewGoAllocator()
	schema := Schema(run)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	unitB := b.Field(0).(*array.StringBuilder)
	kindB := b.Field(1).(*array.StringBuilder)
	stepB := b.Field(2).(*array.Int64Builder)
	valueB := b.Field(3).(*array.Float64Builder)

	for _, u := range run.Units {
		for step, v := range u.Values {
			unitB.Append(u.Name)
			kindB.Append(u.Kind)
			stepB.Append(int64(step))
			valueB.Append(v)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return nil
}

// WriteArrowFile writes run to path and returns the file size.
func WriteArrowFile(path string, run *store.RunRecord) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating export file: %w", err)
	}
	if err := WriteArrow(f, run); err != nil {
		f.Close()
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("stat export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing export file: %w", err)
	}
	return info.Size(), nil
}

// ReadArrow reads an export back into a RunRecord. Only units that had
// samples are present, in first-seen order; inputs and transitions are not
// part of the format.
func ReadArrow(r ipc.ReadAtSeeker) (*store.RunRecord, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("opening arrow file: %w", err)
	}
	defer fr.Close()

	run := &store.RunRecord{}
	md := fr.Schema().Metadata()
	if i := md.FindKey(MetaRunID); i >= 0 {
		run.ID = md.Values()[i]
	}
	if i := md.FindKey(MetaScenario); i >= 0 {
		run.Scenario = md.Values()[i]
	}
	if i := md.FindKey(MetaSteps); i >= 0 {
		if n, err := strconv.Atoi(md.Values()[i]); err == nil {
			run.Steps = n
		}
	}

	index := make(map[string]int)
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("reading arrow record %d: %w", i, err)
		}
		if rec.NumCols() != 4 {
			return nil, fmt.Errorf("arrow record %d has %d columns, want 4", i, rec.NumCols())
		}
		unitCol, ok1 := rec.Column(0).(*array.String)
		kindCol, ok2 := rec.Column(1).(*array.String)
		stepCol, ok3 := rec.Column(2).(*array.Int64)
		valueCol, ok4 := rec.Column(3).(*array.Float64)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, fmt.Errorf("arrow record %d has unexpected column types", i)
		}

		for row := 0; row < int(rec.NumRows()); row++ {
			name := unitCol.Value(row)
			j, seen := index[name]
			if !seen {
				j = len(run.Units)
				index[name] = j
				run.Units = append(run.Units, store.UnitTrace{Name: name, Kind: kindCol.Value(row)})
			}
			u := &run.Units[j]
			if step := int(stepCol.Value(row)); step != len(u.Values) {
				return nil, fmt.Errorf("unit %s: step %d out of order, expected %d", name, step, len(u.Values))
			}
			u.Values = append(u.Values, valueCol.Value(row))
		}
	}
	return run, nil
}

// ReadArrowFile reads an export from path.
func ReadArrowFile(path string) (*store.RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export file: %w", err)
	}
	defer f.Close()
	return ReadArrow(f)
}
