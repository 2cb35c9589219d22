package motion

import (
	"math"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// TypeHMX is the head-tracker rotation matrix sentence:
//
//	$HTHMX,m11,m12,m13,m21,m22,m23,m31,m32,m33*CS
//
// All nine fields empty means the tracker has no reading.
const TypeHMX = "HMX"

// HMX is a parsed rotation matrix sentence.
type HMX struct {
	nmea.BaseSentence
	Rotation [3][3]float64
	Valid    bool
}

func init() {
	nmea.MustRegisterParser(TypeHMX, parseHMX)
}

func parseHMX(s nmea.BaseSentence) (nmea.Sentence, error) {
	m := HMX{BaseSentence: s}

	empty := true
	for _, f := range s.Fields {
		if f != "" {
			empty = false
			break
		}
	}
	if empty {
		return m, nil
	}

	p := nmea.NewParser(s)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Rotation[i][j] = p.Float64(i*3+j, "rotation")
		}
	}
	m.Valid = true
	return m, p.Err()
}

// sampleFromSentence turns a parsed sentence into a raw sample. ok is false
// for sentence types that carry no orientation; a known type with no
// reading returns ErrNoData.
func sampleFromSentence(s nmea.Sentence) (orientation.RawSample, bool, error) {
	switch m := s.(type) {
	case HMX:
		if !m.Valid {
			return orientation.RawSample{}, true, ErrNoData
		}
		return orientation.RawSample{Rotation: m.Rotation}, true, nil
	case nmea.HDT:
		// heading is clockwise from north; sensor yaw is counter-clockwise about Z
		yaw := -m.Heading * math.Pi / 180.0
		return orientation.RawSample{Rotation: orientation.RotationZ(yaw).Linear()}, true, nil
	default:
		return orientation.RawSample{}, false, nil
	}
}
