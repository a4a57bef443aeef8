// Package config parses the CLI's device configuration string (a
// comma-separated list of key=value pairs) and holds the resulting run
// configuration.
//
// Grounded on config.go's getConfig/getDefaults (defaulted struct, loaded
// and overridden via gopkg.in/ini.v1), adapted from a whole INI file to the
// CLI's inline device configuration string by rewriting commas to newlines
// and handing the result to ini.Load/MapTo, so the pack's ini.v1 dependency
// still does the parsing work rather than a hand-rolled key=value splitter.
package config

import (
	"errors"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// FilterWidth selects the IF channel filter shape.
type FilterWidth string

const (
	FilterWide    FilterWidth = "wide"
	FilterDefault FilterWidth = "default"
	FilterMedium  FilterWidth = "medium"
	FilterNarrow  FilterWidth = "narrow"
)

// OutputMode selects the audio sink the consumer stage writes to.
type OutputMode string

const (
	OutputRawS16LE   OutputMode = "raw-s16le"
	OutputRawF32LE   OutputMode = "raw-f32le"
	OutputWAV        OutputMode = "wav"
	OutputPlayback   OutputMode = "playback"
)

// DeviceConfig holds device-specific tuning parameters parsed out of the
// CLI's comma-separated device configuration string.
type DeviceConfig struct {
	Gain         int
	PPMOffset    int
	AntennaIndex int
	BiasTee      bool
}

// ErrInvalidDeviceConfig is returned by ParseDeviceConfig for a malformed
// configuration string.
var ErrInvalidDeviceConfig = errors.New("config: invalid device configuration string")

// ParseDeviceConfig parses a comma-separated "key=value" string (e.g.
// "Gain=40,PPMOffset=-3,BiasTee=true"; keys are DeviceConfig field names)
// into a DeviceConfig, via ini.v1.
func ParseDeviceConfig(s string) (DeviceConfig, error) {
	cfg := DeviceConfig{}
	if s == "" {
		return cfg, nil
	}

	asINI := strings.ReplaceAll(s, ",", "\n")
	file, err := ini.Load([]byte(asINI))
	if err != nil {
		return cfg, errors.Join(ErrInvalidDeviceConfig, err)
	}

	if err := file.Section("").MapTo(&cfg); err != nil {
		return cfg, errors.Join(ErrInvalidDeviceConfig, err)
	}
	return cfg, nil
}

// Config is the fully-resolved run configuration assembled from CLI flags.
type Config struct {
	Mode            string
	DeviceFamily    string
	DeviceSpec      string
	DeviceConfig    DeviceConfig
	Frequency       uint32
	SampleRate      uint32
	OutputMode      OutputMode
	OutputPath      string
	BufferSeconds   float64
	Stereo          bool
	PilotShift      bool
	DeemphasisUS    bool // true = 75us, false = 50us.
	FilterWidth     FilterWidth
	SquelchDB       float64
	EqualizerStages int
	PPSFilePath     string
}

// Default returns a Config with the teacher's style of sane defaults:
// US deemphasis, default filter width, no squelch, raw S16LE output.
func Default() Config {
	return Config{
		Mode:            "fm",
		DeviceFamily:    "rtlsdr",
		SampleRate:      200000,
		OutputMode:      OutputRawS16LE,
		BufferSeconds:   1.0,
		Stereo:          true,
		DeemphasisUS:    true,
		FilterWidth:     FilterDefault,
		EqualizerStages: 41,
	}
}

// DeemphasisSeconds returns the time constant selected by DeemphasisUS.
func (c Config) DeemphasisSeconds() float64 {
	if c.DeemphasisUS {
		return 75e-6
	}
	return 50e-6
}

// ParsePPMOffset validates a ppm string is within the spec's allowed range
// of +/-1,000,000.
func ParsePPMOffset(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Join(ErrInvalidDeviceConfig, err)
	}
	if v < -1000000 || v > 1000000 {
		return 0, errors.New("config: ppm offset out of range")
	}
	return v, nil
}
