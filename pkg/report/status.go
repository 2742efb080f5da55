package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/itohio/agrimon/pkg/alert"
	"github.com/itohio/agrimon/pkg/sample"
	"github.com/itohio/agrimon/pkg/store"
)

// WriteStatus writes one human-readable reading block. Values that failed
// validation are shown as last read, marked with "!".
func WriteStatus(w io.Writer, at time.Time, s sample.Snapshot, set alert.Set) error {
	var b strings.Builder

	fmt.Fprintf(&b, "--- %s %s ---\n", store.FormatDate(at), store.FormatTime(at))
	fmt.Fprintf(&b, "Crop stress:  %.2f C (crop %.2f, air %.2f)%s\n",
		s.CropStress, s.CropTemperature, s.AirTemperature, mark(s.CropStressValid))
	fmt.Fprintf(&b, "Rainfall:     %.2f mm (%d tips)\n", s.Rainfall, s.RainTips)
	fmt.Fprintf(&b, "Crop height:  %.2f cm%s\n", s.CropHeight, mark(s.HeightValid))
	fmt.Fprintf(&b, "Water:        TDS %.2f ppm, pH %.2f, turbidity %.2f NTU%s\n",
		s.TDS, s.PH, s.Turbidity, mark(s.WaterValid))
	fmt.Fprintf(&b, "Humidity:     %.2f %%RH at %.2f C%s\n",
		s.Humidity, s.AmbientTemperature, mark(s.HumidityValid))
	if set.Triggered() {
		fmt.Fprintf(&b, "Alerts:       %s\n", set.Message())
	} else {
		b.WriteString("Alerts:       none\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func mark(valid bool) string {
	if valid {
		return ""
	}
	return " !"
}
