package omegatx

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Constants defined by the Omega iServer transmitter protocols
const (
	// DefaultBarometerPort is the TCP port the iBTHX-W answers commands on.
	DefaultBarometerPort = 2000
	// DefaultHygrometerPort is the HTTP port of the iTHX-W status page.
	DefaultHygrometerPort = 80

	// StatusPath is the page the iTHX-W renders its current readings on.
	StatusPath = "/postReadHtml?a="

	// ReadBufferSize is the largest single response read from the TCP stream.
	// Responses are one short text line, so one read per command is enough.
	ReadBufferSize = 1024

	commandPrefix     = '*'
	commandTerminator = '\r'

	// deviceErrorResponse is what the iBTHX-W sends back for a command it
	// does not understand.
	deviceErrorResponse = "ERROR!\r"

	maxCommandLen = 8
)

var (
	ErrNotConnected      = errors.New("transmitter not connected")
	ErrConnect           = errors.New("connection failed")
	ErrDeviceError       = errors.New("device returned error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrUnknownModel      = errors.New("unknown transmitter model")
	ErrInvalidOption     = errors.New("invalid option")
)

// Command pairs an iBTHX-W query code with the label its reading is
// reported under.
type Command struct {
	Code  string
	Label string
}

// commandTable is the iBTHX-W query sequence. Order is the order the
// commands are sent in and the order channels appear in a Reading.
var commandTable = []Command{
	{Code: "SRTC", Label: LabelTemperatureC},
	{Code: "SRTF", Label: LabelTemperatureF},
	{Code: "SRHb", Label: LabelPressureMbar},
	{Code: "SRHi", Label: LabelPressureInHg},
	{Code: "SRHm", Label: LabelPressureMmHg},
	{Code: "SRH2", Label: LabelHumidity},
	{Code: "SRDF2", Label: LabelDewpointF},
	{Code: "SRDC2", Label: LabelDewpointC},
}

// Commands returns a copy of the iBTHX-W command table.
func Commands() []Command {
	out := make([]Command, len(commandTable))
	copy(out, commandTable)
	return out
}

func validateCommand(c Command) error {
	if c.Code == "" || len(c.Code) > maxCommandLen {
		return fmt.Errorf("command code %q must be 1-%d characters", c.Code, maxCommandLen)
	}
	if strings.ContainsAny(c.Code, "*\r\n") {
		return fmt.Errorf("command code %q contains a reserved character", c.Code)
	}
	if c.Label == "" {
		return fmt.Errorf("command %q has no label", c.Code)
	}
	if c.Label == LabelTime {
		return fmt.Errorf("command %q uses reserved label %q", c.Code, LabelTime)
	}
	return nil
}

// EncodeCommand serializes a query code into its wire form, *<code>\r.
func EncodeCommand(code string) []byte {
	buf := make([]byte, 0, len(code)+2)
	buf = append(buf, commandPrefix)
	buf = append(buf, code...)
	buf = append(buf, commandTerminator)
	return buf
}

// ParseResponse decodes a single command response into its numeric value.
func ParseResponse(raw []byte) (float64, error) {
	if string(raw) == deviceErrorResponse {
		return 0, ErrDeviceError
	}

	text := string(bytes.Trim(raw, " \t\r\n\x00"))
	if text == "" {
		return 0, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedResponse, text)
	}
	return v, nil
}
