// Package config loads bit-timing and device settings for the canhack
// engine from a YAML profile plus command-line overrides, the same
// two-layer approach used for device and timing setup elsewhere in this
// codebase: a checked-in YAML file for the common case, pflag options for
// per-run overrides.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/canislabs/gocanhack/canhack"
)

// Timing is the YAML-serializable form of canhack.Timing: plain integer
// tick counts rather than the canhack.Ticks type, so a profile file reads
// as ordinary numbers.
type Timing struct {
	BitTime                int32 `yaml:"bit_time"`
	BitTimeFD              int32 `yaml:"bit_time_fd"`
	SamplePointOffset      int32 `yaml:"sample_point_offset"`
	SamplePointOffsetFD    int32 `yaml:"sample_point_offset_fd"`
	SampleToBitEnd         int32 `yaml:"sample_to_bit_end"`
	SampleToBitEndFD       int32 `yaml:"sample_to_bit_end_fd"`
	FallingEdgeRecalibrate int32 `yaml:"falling_edge_recalibrate"`
}

// ToEngineTiming converts to the canhack.Timing the engine actually
// consumes.
func (t Timing) ToEngineTiming() canhack.Timing {
	return canhack.Timing{
		BitTime:                canhack.Ticks(t.BitTime),
		BitTimeFD:              canhack.Ticks(t.BitTimeFD),
		SamplePointOffset:      canhack.Ticks(t.SamplePointOffset),
		SamplePointOffsetFD:    canhack.Ticks(t.SamplePointOffsetFD),
		SampleToBitEnd:         canhack.Ticks(t.SampleToBitEnd),
		SampleToBitEndFD:       canhack.Ticks(t.SampleToBitEndFD),
		FallingEdgeRecalibrate: canhack.Ticks(t.FallingEdgeRecalibrate),
	}
}

// DefaultTimingFor500k1M is a representative classic-CAN-only profile:
// 500 kbit/s arbitration, sampled at roughly 75% of the bit, with FD
// fields left at the same rate (no BRS) so a non-FD deployment can leave
// them populated without risking a divide-by-zero downstream.
var DefaultTimingFor500k1M = Timing{
	BitTime:                100,
	BitTimeFD:               100,
	SamplePointOffset:       75,
	SamplePointOffsetFD:     75,
	SampleToBitEnd:          25,
	SampleToBitEndFD:        25,
	FallingEdgeRecalibrate:  0,
}

// Device describes one HAL binding: which GPIO chip and line offsets to
// use, loaded from the "device" section of a profile.
type Device struct {
	Chip      string `yaml:"chip"`
	TXLine    int    `yaml:"tx_line"`
	RXLine    int    `yaml:"rx_line"`
	DebugLine int    `yaml:"debug_line"`
}

// Profile is the top-level shape of a YAML config file.
type Profile struct {
	Timing Timing `yaml:"timing"`
	Device Device `yaml:"device"`
}

// Load reads and parses a YAML profile from path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return &p, nil
}

// Flags holds the command-line overrides a canhack CLI tool accepts on
// top of (or instead of) a YAML profile.
type Flags struct {
	ConfigPath string
	Chip       string
	TXLine     int
	RXLine     int
	DebugLine  int
	Verbose    bool
}

// RegisterFlags binds fs to a Flags value the way kissutil binds its own
// TNC connection options, with the same "most things have a sensible
// default" philosophy.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to YAML timing/device profile")
	fs.StringVar(&f.Chip, "chip", "gpiochip0", "GPIO character device chip name")
	fs.IntVar(&f.TXLine, "tx-line", -1, "GPIO line offset for CAN TX (overrides profile)")
	fs.IntVar(&f.RXLine, "rx-line", -1, "GPIO line offset for CAN RX (overrides profile)")
	fs.IntVar(&f.DebugLine, "debug-line", -1, "GPIO line offset for the debug probe, or -1 to disable")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "enable debug-level logging")
	return f
}

// Resolve merges a loaded profile (if any) with flag overrides, flags
// taking priority whenever a line offset was actually set.
func (f *Flags) Resolve() (Device, error) {
	dev := Device{Chip: f.Chip, DebugLine: -1}
	if f.ConfigPath != "" {
		p, err := Load(f.ConfigPath)
		if err != nil {
			return Device{}, err
		}
		dev = p.Device
	}
	if f.Chip != "" {
		dev.Chip = f.Chip
	}
	if f.TXLine >= 0 {
		dev.TXLine = f.TXLine
	}
	if f.RXLine >= 0 {
		dev.RXLine = f.RXLine
	}
	if f.DebugLine >= 0 {
		dev.DebugLine = f.DebugLine
	}
	return dev, nil
}
