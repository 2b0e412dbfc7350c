package rules

// Quality is the diagnostic tag the proximity pass attaches to a LOS match
// (spec.md §4.4). It carries no behavioral weight in the core; it exists
// for downstream triage.
type Quality string

const (
	QualityVeryHigh Quality = "vhigh"
	QualityHigh     Quality = "high"
	QualityMedium   Quality = "medium"
	QualityLow      Quality = "low"
)

// helicopterCategory is the ADS-B emitter category for rotorcraft.
const helicopterCategory = "A7"

// ClassifyQuality derives a diagnostic quality tag from an LOS episode's
// duration, the shorter of the two aircrafts' track-history lengths, the
// closest-point-of-approach separations, and whether either aircraft is a
// helicopter (spec.md §4.4):
//
//   - vhigh:  event <= 40s, both tracks >= 60s, CPA < 0.2nm and < 200ft
//   - high:   any other event under 60s (an event over 40s, or a CPA that
//     misses vhigh's thresholds)
//   - medium: 60-120s event, or a helicopter is involved
//   - low:    > 120s (suggests formation flight) or < 60s track history
//     (suggests insufficient data)
func ClassifyQuality(eventDurationSecs, minTrackHistorySecs, cpaLatNM, cpaAltFt float64, categoryA, categoryB string) Quality {
	isHelicopter := categoryA == helicopterCategory || categoryB == helicopterCategory

	if minTrackHistorySecs < 60 {
		return QualityLow
	}
	if eventDurationSecs > 120 {
		return QualityLow
	}
	if isHelicopter {
		return QualityMedium
	}
	if eventDurationSecs >= 60 {
		return QualityMedium
	}
	if eventDurationSecs <= 40 && cpaLatNM < 0.2 && cpaAltFt < 200 {
		return QualityVeryHigh
	}
	return QualityHigh
}
