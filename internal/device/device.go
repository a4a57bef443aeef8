// Package device abstracts the hardware/file sources the pipeline can read
// IQ samples from. Each concrete type implements Capability; callers select
// one by Family at startup.
//
// Grounded on dongle_stage.go's managedDongle wrapper around
// github.com/jpoirier/gortlsdr, generalized into an interface so the
// pipeline does not depend on any one device family directly.
package device

import (
	"errors"
	"fmt"
)

// Family identifies a device driver.
type Family string

const (
	FamilyRTLSDR   Family = "rtlsdr"
	FamilyFile     Family = "file"
	FamilyAirspyR2 Family = "airspyr2"
	FamilyAirspyHF Family = "airspyhf"
)

// ErrFamilyUnavailable is returned by Open for a Family with no driver
// compiled into this build.
var ErrFamilyUnavailable = errors.New("device: family unavailable in this build")

// Capability is the minimal contract the pipeline's producer stage needs
// from any IQ source: configurable center frequency and sample rate, a
// blocking read of the next block, and a way to tear the device down.
type Capability interface {
	SetCenterFreq(hz uint32) error
	SetSampleRate(hz uint32) error
	ReadSamples(n int) ([]complex128, error)
	Close() error
}

// Open constructs a Capability for the requested family. AirspyR2 and
// AirspyHF are recognized tags with no implementation in this build: the
// retrieval pack contains no Go binding for either chipset, so Open reports
// ErrFamilyUnavailable rather than fabricating one.
func Open(family Family, spec string) (Capability, error) {
	switch family {
	case FamilyRTLSDR:
		return openRTLSDR(spec)
	case FamilyFile:
		return openFile(spec)
	case FamilyAirspyR2, FamilyAirspyHF:
		return nil, fmt.Errorf("%w: %s", ErrFamilyUnavailable, family)
	default:
		return nil, fmt.Errorf("device: unknown family %q", family)
	}
}
