package kcf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/skcf/internal/features"
	"github.com/banshee-data/skcf/internal/kernel"
)

// ErrUnknownMethod is returned by ParseMethod for names outside the catalogue.
var ErrUnknownMethod = errors.New("unknown tracker method")

// Method selects one tracker variant: kernel law, feature law and whether
// the scale estimator runs.
type Method struct {
	Kernel  kernel.Law
	Feature features.Law
	Scale   bool
}

// DefaultMethod is the Gaussian-kernel FHOG tracker with scale estimation.
var DefaultMethod = Method{Kernel: kernel.Gaussian, Feature: features.FHOG, Scale: true}

var (
	kernelOrder  = []kernel.Law{kernel.Polynomial, kernel.Gaussian, kernel.Linear}
	featureOrder = []features.Law{features.Gray, features.RGB, features.FHOG, features.HSV, features.HLS}
)

func kernelPrefix(k kernel.Law) string {
	switch k {
	case kernel.Polynomial:
		return "KCF_P"
	case kernel.Gaussian:
		return "KCF_G"
	case kernel.Linear:
		return "DCF"
	}
	return k.String()
}

// String returns the catalogue name, e.g. "KCF_G_FHOG_S".
func (m Method) String() string {
	s := kernelPrefix(m.Kernel) + "_" + m.Feature.String()
	if m.Scale {
		s += "_S"
	}
	return s
}

// Description returns the human readable variant tag reported by a
// tracker, e.g. "KCF(G)_FHOG_S" or "DCF_RGB".
func (m Method) Description() string {
	var s string
	switch m.Kernel {
	case kernel.Polynomial:
		s = "KCF(P)"
	case kernel.Gaussian:
		s = "KCF(G)"
	default:
		s = "DCF"
	}
	s += "_" + m.Feature.String()
	if m.Scale {
		s += "_S"
	}
	return s
}

// Methods returns the full catalogue: every kernel law with every feature
// law, first without and then with scale estimation.
func Methods() []Method {
	out := make([]Method, 0, len(kernelOrder)*len(featureOrder)*2)
	for _, scale := range []bool{false, true} {
		for _, k := range kernelOrder {
			for _, f := range featureOrder {
				out = append(out, Method{Kernel: k, Feature: f, Scale: scale})
			}
		}
	}
	return out
}

// ParseMethod looks up a catalogue name (case-insensitive). The empty
// string selects DefaultMethod.
func ParseMethod(name string) (Method, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return DefaultMethod, nil
	}
	for _, m := range Methods() {
		if m.String() == name {
			return m, nil
		}
	}
	return Method{}, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// MarshalText encodes m as its catalogue name.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a catalogue name.
func (m *Method) UnmarshalText(b []byte) error {
	parsed, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
