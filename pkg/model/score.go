package model

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// AverageDataset is the name of the synthetic dataset holding the
// per-metric means.
const AverageDataset = "Average"

// Score is the list of per-dataset metrics reported by a scoring task.
type Score []DatasetScore

type DatasetScore struct {
	Dataset string        `json:"dataset"`
	Metrics []MetricValue `json:"metrics"`
}

func (ds *DatasetScore) UnmarshalJSON(b []byte) error {
	var aux struct {
		Dataset *string        `json:"dataset"`
		Metrics *[]MetricValue `json:"metrics"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Dataset == nil {
		return errors.New("score entries require a dataset")
	}
	if aux.Metrics == nil {
		return errors.New("score entries require metrics")
	}
	ds.Dataset = *aux.Dataset
	ds.Metrics = *aux.Metrics
	return nil
}

type MetricValue struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

func (mv *MetricValue) UnmarshalJSON(b []byte) error {
	var aux struct {
		Name  *string         `json:"name"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Name == nil {
		return errors.New("metrics require a name")
	}
	if len(aux.Value) == 0 {
		return errors.New("metrics require a value")
	}
	mv.Name = *aux.Name
	return mv.Value.UnmarshalJSON(aux.Value)
}

// Value is a metric value: null, a number or a string.
type Value struct {
	num *float64
	str *string
}

func Number(f float64) Value {
	return Value{num: &f}
}

func String(s string) Value {
	return Value{str: &s}
}

func (v Value) IsNull() bool {
	return v.num == nil && v.str == nil
}

// Float returns the numeric interpretation of the value: numbers as is,
// strings when they parse as finite floats.
func (v Value) Float() (float64, bool) {
	var f float64
	switch {
	case v.num != nil:
		f = *v.num
	case v.str != nil:
		p, err := strconv.ParseFloat(strings.TrimSpace(*v.str), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.num != nil:
		return json.Marshal(*v.num)
	case v.str != nil:
		return json.Marshal(*v.str)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*v = Value{}
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v.str = &s
		return nil
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return errors.Wrap(err, "invalid metric value")
		}
		v.num = &f
		return nil
	}
	return errors.New("metric values must be null, a number or a string")
}
