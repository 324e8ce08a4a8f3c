package omegatx

import (
	"encoding/json"
	"strconv"
	"time"
)

// Channel labels used in a Reading.
const (
	LabelTime         = "Time in ms"
	LabelTemperatureC = "Temperature in °C"
	LabelTemperatureF = "Temperature in °F"
	LabelPressureMbar = "Pressure in mbar/hPa"
	LabelPressureInHg = "Pressure in inHg"
	LabelPressureMmHg = "Pressure in mmHg"
	LabelHumidity     = "Relative Humidity in %"
	LabelDewpointF    = "Dewpoint in °F"
	LabelDewpointC    = "Dewpoint in °C"
)

// Value is the outcome of reading one channel: a number, or absent when the
// transmitter gave nothing usable. The zero Value is absent.
type Value struct {
	v     float64
	valid bool
}

// Present returns a Value holding f.
func Present(f float64) Value {
	return Value{v: f, valid: true}
}

// Absent returns a Value with no reading.
func Absent() Value {
	return Value{}
}

// Float64 returns the reading and whether one is present.
func (v Value) Float64() (float64, bool) {
	return v.v, v.valid
}

// Valid reports whether the channel produced a reading.
func (v Value) Valid() bool {
	return v.valid
}

func (v Value) String() string {
	if !v.valid {
		return "null"
	}
	return strconv.FormatFloat(v.v, 'g', -1, 64)
}

// MarshalJSON encodes an absent value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// Channel is one labelled measurement within a Reading.
type Channel struct {
	Label string
	Value Value
}

// Reading is the result of one Get: the time the read started and every
// channel in query order.
//
// A Reading with no channels is empty; it is what a transmitter returns
// when nothing at all came back. Individually failed channels are kept as
// absent values in a non-empty Reading.
type Reading struct {
	Time     time.Time
	Channels []Channel
}

// Empty reports whether the Reading carries no channels.
func (r Reading) Empty() bool {
	return len(r.Channels) == 0
}

// Len returns the number of channels.
func (r Reading) Len() int {
	return len(r.Channels)
}

// TimeMillis returns the read start time in Unix milliseconds, or 0 for an
// empty Reading.
func (r Reading) TimeMillis() int64 {
	if r.Time.IsZero() {
		return 0
	}
	return r.Time.UnixMilli()
}

// Lookup returns the value recorded under label.
func (r Reading) Lookup(label string) (Value, bool) {
	for _, c := range r.Channels {
		if c.Label == label {
			return c.Value, true
		}
	}
	return Value{}, false
}

// Labels returns channel labels in query order.
func (r Reading) Labels() []string {
	labels := make([]string, len(r.Channels))
	for i, c := range r.Channels {
		labels[i] = c.Label
	}
	return labels
}

// AllAbsent reports whether no channel holds a value.
func (r Reading) AllAbsent() bool {
	for _, c := range r.Channels {
		if c.Value.valid {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the Reading as a flat object keyed by label, with the
// start time under "Time in ms". An empty Reading encodes as {}.
func (r Reading) MarshalJSON() ([]byte, error) {
	if r.Empty() {
		return []byte("{}"), nil
	}

	m := make(map[string]any, len(r.Channels)+1)
	m[LabelTime] = r.TimeMillis()
	for _, c := range r.Channels {
		m[c.Label] = c.Value
	}
	return json.Marshal(m)
}
