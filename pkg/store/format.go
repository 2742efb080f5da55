package store

import (
	"fmt"
	"time"

	"github.com/itohio/agrimon/pkg/sample"
)

// Header is the data file column layout.
var Header = []string{
	"Date", "Time",
	"CropTemp", "AirTemp", "CropStress",
	"Rainfall", "CropHeight",
	"TDS", "pH", "Turbidity",
	"Humidity", "Temperature",
}

// FormatDate renders t as YYYY/M/D. The zero time renders as 0/0/0.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "0/0/0"
	}
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}

// FormatTime renders t as H:M:S without padding. The zero time renders as 0:0:0.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "0:0:0"
	}
	return fmt.Sprintf("%d:%d:%d", t.Hour(), t.Minute(), t.Second())
}

// FormatEvent renders one event log line: "YYYY/M/D H:M - message".
func FormatEvent(at time.Time, message string) string {
	hm := "0:0"
	if !at.IsZero() {
		hm = fmt.Sprintf("%d:%d", at.Hour(), at.Minute())
	}
	return fmt.Sprintf("%s %s - %s", FormatDate(at), hm, message)
}

// Values returns the ten measurement columns in Header order.
func Values(s sample.Snapshot) []float64 {
	return []float64{
		s.CropTemperature, s.AirTemperature, s.CropStress,
		s.Rainfall, s.CropHeight,
		s.TDS, s.PH, s.Turbidity,
		s.Humidity, s.AmbientTemperature,
	}
}

// Row renders a snapshot as a data file record.
func Row(at time.Time, s sample.Snapshot) []string {
	row := make([]string, 0, len(Header))
	row = append(row, FormatDate(at), FormatTime(at))
	for _, v := range Values(s) {
		row = append(row, fmt.Sprintf("%.2f", v))
	}
	return row
}
