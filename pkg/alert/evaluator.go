// Package alert evaluates a snapshot against the alerting thresholds.
package alert

import (
	"strings"

	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/sample"
)

// Alert reasons, in evaluation order.
const (
	ReasonCropStress = "high crop stress"
	ReasonRainfall   = "heavy rainfall"
	ReasonTDS        = "TDS out of range"
	ReasonPH         = "pH out of range"
	ReasonHumidity   = "humidity out of range"
)

// Set is the ordered list of reasons raised for one tick.
type Set struct {
	Reasons []string
}

// Triggered reports whether any rule fired.
func (s Set) Triggered() bool {
	return len(s.Reasons) > 0
}

// Message joins the reasons into the text persisted with the alert.
func (s Set) Message() string {
	return strings.Join(s.Reasons, ", ")
}

// Evaluate applies every rule to s independently. NaN values never trigger.
func Evaluate(s sample.Snapshot, th *config.Thresholds) Set {
	var set Set

	if s.CropStress > th.CropStress {
		set.Reasons = append(set.Reasons, ReasonCropStress)
	}
	if s.Rainfall > th.Rainfall {
		set.Reasons = append(set.Reasons, ReasonRainfall)
	}
	if s.TDS < th.TDSMin || s.TDS > th.TDSMax {
		set.Reasons = append(set.Reasons, ReasonTDS)
	}
	if s.PH < th.PHMin || s.PH > th.PHMax {
		set.Reasons = append(set.Reasons, ReasonPH)
	}
	if s.Humidity < th.HumidityMin || s.Humidity > th.HumidityMax {
		set.Reasons = append(set.Reasons, ReasonHumidity)
	}

	return set
}
