// Package rules implements the declarative rule system: conditions
// (AND-combined), actions, the spatial pre-filter, cooldown bookkeeping,
// and the proximity (LOS) evaluation pass (spec.md §3, §4.4).
package rules

import "adsbactions/pkg/geo"

// LatLonRing is the `latlongring: [radius_nm, lat, lon]` condition.
type LatLonRing struct {
	RadiusNM float64
	Lat      float64
	Lon      float64
}

// TimeRange is one parsed "HHMM-HHMM" window from `time_ranges`. Minutes
// are minutes-of-day, 0-1439. Wraps is true when the window crosses
// midnight (End < Start).
type TimeRange struct {
	StartMin int
	EndMin   int
	Wraps    bool
}

// ProximityParams is the `proximity: [alt_sep_ft, lat_sep_nm]` condition:
// it both gates a rule into the periodic proximity pass and supplies that
// pass's per-pair separation thresholds.
type ProximityParams struct {
	AltSepFt float64
	LatSepNM float64
}

// Conditions is a tagged-variant record of the closed set of condition
// kinds spec.md §3 enumerates. A nil pointer/slice means the condition is
// absent from the rule (not evaluated); a non-nil empty slice is a
// meaningful value (e.g. `regions: []`).
type Conditions struct {
	Enabled *bool

	AircraftList string

	MinAlt *int
	MaxAlt *int

	MinVerticalRate *float64
	MaxVerticalRate *float64

	Squawk []string

	// Emergency is "none", "any", a specific value, or "" if absent.
	Emergency string

	Category []string

	CallsignPrefix []string

	// Regions is nil if absent, non-nil (possibly empty) if present.
	Regions []string

	// TransitionRegions holds [from, to]; "" means the `none` region.
	TransitionRegions *[2]string

	ChangedRegions bool

	LatLonRing *LatLonRing

	TimeRanges []TimeRange

	Proximity *ProximityParams

	// Cooldown/RuleCooldown are windows in minutes.
	Cooldown     *float64
	RuleCooldown *float64
}

// Actions is the set of actions a matched rule fires, all of which run
// (spec.md §3: "all fire when conditions match").
type Actions struct {
	Callback       string
	Note           string
	Print          bool
	Webhook        *WebhookAction
	EmitJSONL      string
	ExpireCallback string
}

// WebhookAction is the parsed `webhook: [kind, recipient, message?]` value.
type WebhookAction struct {
	Kind      string
	Recipient string
	Message   string
}

// Rule is one parsed rule definition: a name, AND-combined conditions, and
// the actions that fire together when every condition passes.
type Rule struct {
	Name       string
	Conditions Conditions
	Actions    Actions

	// BBox is the precomputed bounding box for a LatLonRing condition, or
	// nil if the rule has none. Used by the spatial grid pre-filter; it
	// never causes a rule that would otherwise match to be skipped (it is
	// a superset test only).
	BBox *geo.BBox
}

// HasLatLonRing reports whether this rule participates in the spatial grid.
func (r *Rule) HasLatLonRing() bool {
	return r.Conditions.LatLonRing != nil
}

// IsProximityRule reports whether this rule is evaluated only in the
// periodic proximity pass (spec.md §4.4: proximity conditions gate a rule
// out of per-position evaluation entirely).
func (r *Rule) IsProximityRule() bool {
	return r.Conditions.Proximity != nil
}
