package rules

import (
	"log"
	"os"
	"strings"

	"adsbactions/pkg/callbacks"
	"adsbactions/pkg/flight"
	"adsbactions/pkg/geo"
	"adsbactions/pkg/ioformat"
	"adsbactions/pkg/location"
	"adsbactions/pkg/stats"
	"adsbactions/pkg/webhooks"
)

// Config configures a new Engine.
type Config struct {
	Rules         []Rule
	AircraftLists map[string][]string

	// UseSpatialGrid enables the bbox + grid pre-filter (spec.md §4.4,
	// §9). Disabling it makes every rule a linear-scan candidate; the
	// match set is identical either way.
	UseSpatialGrid  bool
	GridCellDegrees float64

	Callbacks *callbacks.Registry
	Webhooks  *webhooks.Registry
	Stats     *stats.Stats
	Sink      *ioformat.JSONLSink

	// MinFreshSecs bounds how stale a flight's last position may be to
	// still be considered in the proximity pass (spec.md §4.4, default
	// 10s).
	MinFreshSecs float64

	Logger *log.Logger
}

// Engine parses rule definitions, precomputes the spatial pre-filter, and
// evaluates conditions per Flight after each position update (spec.md
// §4.4).
type Engine struct {
	rules         []Rule
	aircraftLists map[string][]string

	grid          *spatialGrid
	nonGridRuleIx []int
	proximityIx   []int

	cooldownLog  *CooldownLog
	executionLog *ExecutionLog

	callbacks *callbacks.Registry
	webhooks  *webhooks.Registry
	stats     *stats.Stats
	sink      *ioformat.JSONLSink

	minFresh float64
	logger   *log.Logger
}

// NewEngine builds an Engine from cfg, precomputing bounding boxes and the
// spatial grid for every `latlongring` rule.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		rules:         cfg.Rules,
		aircraftLists: cfg.AircraftLists,
		cooldownLog:   NewCooldownLog(),
		executionLog:  NewExecutionLog(),
		callbacks:     cfg.Callbacks,
		webhooks:      cfg.Webhooks,
		stats:         cfg.Stats,
		sink:          cfg.Sink,
		minFresh:      cfg.MinFreshSecs,
		logger:        cfg.Logger,
	}
	if e.stats == nil {
		e.stats = stats.New()
	}
	if e.aircraftLists == nil {
		e.aircraftLists = make(map[string][]string)
	}
	if e.minFresh <= 0 {
		e.minFresh = 10
	}
	if e.logger == nil {
		e.logger = log.New(os.Stderr, "rules: ", log.LstdFlags)
	}

	if cfg.UseSpatialGrid {
		e.grid = newSpatialGrid(cfg.GridCellDegrees)
	}

	for i := range e.rules {
		r := &e.rules[i]
		if r.Conditions.LatLonRing != nil {
			bbox := geo.BBoxAround(geo.Point{Lat: r.Conditions.LatLonRing.Lat, Lon: r.Conditions.LatLonRing.Lon}, r.Conditions.LatLonRing.RadiusNM)
			r.BBox = &bbox
			if e.grid != nil {
				e.grid.addRule(i, bbox)
			}
		} else {
			e.nonGridRuleIx = append(e.nonGridRuleIx, i)
		}
		if r.Conditions.Proximity != nil {
			e.proximityIx = append(e.proximityIx, i)
		}
	}
	return e
}

// ExecutionLog exposes the fire-count report (spec.md §9, recovered from
// original_source/ruleexecutionlog.py).
func (e *Engine) ExecutionLog() *ExecutionLog { return e.executionLog }

// candidateIndices returns every rule index that could possibly match a
// flight at the given position: all non-latlongring rules, plus (if the
// grid is enabled) the latlongring rules whose bbox covers this cell.
// When the grid is disabled every rule is a candidate.
func (e *Engine) candidateIndices(lat, lon float64) []int {
	if e.grid == nil {
		all := make([]int, len(e.rules))
		for i := range all {
			all[i] = i
		}
		return all
	}
	out := append([]int(nil), e.nonGridRuleIx...)
	out = append(out, e.grid.candidatesAt(lat, lon)...)
	return out
}

// ProcessFlight evaluates every candidate rule against f's current state
// and fires actions for each full match. Proximity rules are skipped
// entirely here (spec.md §4.4): they are evaluated only by
// HandleProximityConditions.
func (e *Engine) ProcessFlight(f *flight.Flight) {
	loc := f.LastLoc
	for _, idx := range e.candidateIndices(loc.Lat, loc.Lon) {
		rule := &e.rules[idx]
		if rule.IsProximityRule() {
			continue
		}
		if !e.evaluateConditions(rule, f, loc.Timestamp) {
			continue
		}
		e.stats.RuleMatches.Add(1)
		e.executeActions(rule, f, nil, loc.Timestamp)
	}
}

// DoExpire fires the expire_callback actions of every rule naming one,
// for a Flight the registry is about to remove (spec.md §4.3, §4.8).
func (e *Engine) DoExpire(f *flight.Flight) {
	e.stats.FlightsExpired.Add(1)
	for i := range e.rules {
		rule := &e.rules[i]
		if rule.Actions.ExpireCallback == "" {
			continue
		}
		if !e.callbacks.Call(rule.Actions.ExpireCallback, f) {
			e.logger.Printf("unknown expire_callback %q on rule %q", rule.Actions.ExpireCallback, rule.Name)
			continue
		}
		e.stats.CallbacksFired.Add(1)
	}
}

// evaluateConditions applies the fixed evaluation order of spec.md §4.4,
// short-circuiting on the first false. cooldown and rule_cooldown are
// evaluated last, in that order, since they are the only conditions whose
// truth depends on *this rule's own* fire history.
func (e *Engine) evaluateConditions(rule *Rule, f *flight.Flight, now float64) bool {
	c := &rule.Conditions

	if c.Enabled != nil && !*c.Enabled {
		return false
	}
	if c.AircraftList != "" && !e.inAircraftList(c.AircraftList, f.FlightID) {
		return false
	}
	if c.MinAlt != nil && f.LastLoc.AltBaro < *c.MinAlt {
		return false
	}
	if c.MaxAlt != nil && f.LastLoc.AltBaro > *c.MaxAlt {
		return false
	}
	if c.MinVerticalRate != nil {
		if !f.LastLoc.Category.HasBaroRate || f.LastLoc.Category.BaroRate < *c.MinVerticalRate {
			return false
		}
	}
	if c.MaxVerticalRate != nil {
		if !f.LastLoc.Category.HasBaroRate || f.LastLoc.Category.BaroRate > *c.MaxVerticalRate {
			return false
		}
	}
	if len(c.Squawk) > 0 && !containsStr(c.Squawk, f.LastLoc.Category.Squawk) {
		return false
	}
	if c.Emergency != "" && !matchesEmergency(c.Emergency, f.LastLoc.Category.Emergency) {
		return false
	}
	if len(c.Category) > 0 && !containsStr(c.Category, f.LastLoc.Category.EmitterCategory) {
		return false
	}
	if len(c.CallsignPrefix) > 0 && !hasAnyPrefix(c.CallsignPrefix, f.FlightID) {
		return false
	}
	if c.Regions != nil && !f.IsInRegions(c.Regions) {
		return false
	}
	if c.TransitionRegions != nil && !matchesTransition(*c.TransitionRegions, f) {
		return false
	}
	if c.ChangedRegions && !regionsChanged(f) {
		return false
	}
	if c.LatLonRing != nil {
		center := location.Location{Lat: c.LatLonRing.Lat, Lon: c.LatLonRing.Lon}
		if f.LastLoc.DistanceNM(center) > c.LatLonRing.RadiusNM {
			return false
		}
	}
	if len(c.TimeRanges) > 0 && !MatchesAny(c.TimeRanges, now) {
		return false
	}
	if c.Cooldown != nil && e.cooldownLog.WithinCooldown(rule.Name, f.FlightID, *c.Cooldown*60, now) {
		return false
	}
	if c.RuleCooldown != nil && e.cooldownLog.WithinRuleCooldown(rule.Name, *c.RuleCooldown*60, now) {
		return false
	}
	return true
}

func (e *Engine) inAircraftList(listName, flightID string) bool {
	list, ok := e.aircraftLists[listName]
	if !ok {
		e.logger.Printf("aircraft_list %q referenced but not defined", listName)
		e.stats.UnknownConditions.Add(1)
		return false
	}
	return containsStr(list, flightID)
}

func matchesEmergency(want, got string) bool {
	switch want {
	case "none":
		return got == "" || got == "none"
	case "any":
		return got != "" && got != "none"
	default:
		return got == want
	}
}

func hasAnyPrefix(prefixes []string, s string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func matchesTransition(t [2]string, f *flight.Flight) bool {
	if !f.PrevValid {
		return false
	}
	return membershipMatches(f.PrevInsideRegions, t[0]) && membershipMatches(f.InsideRegions, t[1])
}

func membershipMatches(memberships []flight.Membership, want string) bool {
	if want == "" || want == "none" {
		for _, m := range memberships {
			if m.Ok {
				return false
			}
		}
		return true
	}
	for _, m := range memberships {
		if m.Ok && m.Name == want {
			return true
		}
	}
	return false
}

func regionsChanged(f *flight.Flight) bool {
	if !f.PrevValid {
		return false
	}
	if len(f.InsideRegions) != len(f.PrevInsideRegions) {
		return true
	}
	for i := range f.InsideRegions {
		if f.InsideRegions[i] != f.PrevInsideRegions[i] {
			return true
		}
	}
	return false
}
