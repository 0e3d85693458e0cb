package models

import (
	"encoding/json"
	"math"
	"time"
)

// Frame is a set of named float columns aligned on a shared time index
type Frame struct {
	Index   []time.Time
	Columns []string
	Data    map[string][]float64
}

// NewFrame creates an empty frame over the given index
func NewFrame(index []time.Time) *Frame {
	idx := make([]time.Time, len(index))
	copy(idx, index)
	return &Frame{
		Index: idx,
		Data:  make(map[string][]float64),
	}
}

// FrameFromSeries builds a single-column frame from a series
func FrameFromSeries(name string, series PriceSeries) *Frame {
	f := NewFrame(series.Times())
	f.Columns = []string{name}
	f.Data[name] = series.Values()
	return f
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

// Empty reports whether the frame has no rows
func (f *Frame) Empty() bool {
	return f.Len() == 0
}

// MarshalJSON renders the frame as an array of row records
func (f *Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Records())
}

// MarshalYAML renders the frame as a sequence of row records
func (f *Frame) MarshalYAML() (interface{}, error) {
	return f.Records(), nil
}

// Records returns one map per row including a "date" field. Non-finite
// values become nil.
func (f *Frame) Records() []map[string]any {
	records := make([]map[string]any, 0, f.Len())
	for i := range f.Index {
		rec := map[string]any{"date": f.Index[i].Format("2006-01-02")}
		for _, name := range f.Columns {
			v := f.Data[name][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				rec[name] = nil
				continue
			}
			rec[name] = v
		}
		records = append(records, rec)
	}
	return records
}

// MergeFrames inner-joins frames on their time index. Row order follows the
// first frame. Zero common rows yields an empty frame carrying all columns.
func MergeFrames(frames ...*Frame) *Frame {
	if len(frames) == 0 {
		return NewFrame(nil)
	}
	merged := frames[0]
	for _, next := range frames[1:] {
		merged = mergePair(merged, next)
	}
	return merged
}

func mergePair(left, right *Frame) *Frame {
	rightPos := make(map[int64]int, len(right.Index))
	for i, ts := range right.Index {
		rightPos[ts.UnixNano()] = i
	}

	var index []time.Time
	var leftRows, rightRows []int
	for i, ts := range left.Index {
		if j, ok := rightPos[ts.UnixNano()]; ok {
			index = append(index, ts)
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	out := NewFrame(index)
	for _, name := range left.Columns {
		out.Columns = append(out.Columns, name)
		out.Data[name] = pick(left.Data[name], leftRows)
	}
	for _, name := range right.Columns {
		if _, exists := out.Data[name]; exists {
			continue
		}
		out.Columns = append(out.Columns, name)
		out.Data[name] = pick(right.Data[name], rightRows)
	}
	return out
}

func pick(values []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = values[r]
	}
	return out
}
