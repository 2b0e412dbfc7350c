package rules

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadedConfig is the parsed form of the rule-configuration mapping
// spec.md §6 describes.
type LoadedConfig struct {
	RegionLayerPaths []string
	AircraftLists    map[string][]string
	Rules            []Rule
}

// Load reads the rule configuration from path using viper, the pack's one
// YAML-capable dependency (billglover-go-adsb-console). The top-level
// shape is:
//
//	config: { region_layers: [...] }
//	aircraft_lists: { name: [flight_id, ...] }
//	rules: { name: { conditions: {...}, actions: {...} } }
func Load(path string) (*LoadedConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("rules: read config %s: %w", path, err)
	}
	return FromViper(v)
}

// FromViper parses an already-populated viper instance, so callers that
// assemble configuration from multiple sources can reuse the same parser.
func FromViper(v *viper.Viper) (*LoadedConfig, error) {
	cfg := &LoadedConfig{AircraftLists: make(map[string][]string)}

	cfg.RegionLayerPaths = toStringSlice(v.Get("config.region_layers"))

	if raw, ok := v.Get("aircraft_lists").(map[string]interface{}); ok {
		for name, val := range raw {
			cfg.AircraftLists[name] = toStringSlice(val)
		}
	}

	rawRules, ok := v.Get("rules").(map[string]interface{})
	if !ok {
		return cfg, nil
	}
	for name, val := range rawRules {
		body, ok := val.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("rules: rule %q is not a mapping", name)
		}
		rule, err := parseRule(name, body)
		if err != nil {
			return nil, err
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	return cfg, nil
}

func parseRule(name string, body map[string]interface{}) (Rule, error) {
	rule := Rule{Name: name}

	if raw, ok := body["conditions"].(map[string]interface{}); ok {
		conds, err := parseConditions(raw)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %q: %w", name, err)
		}
		rule.Conditions = conds
	}
	if raw, ok := body["actions"].(map[string]interface{}); ok {
		rule.Actions = parseActions(raw)
	}
	return rule, nil
}

func parseConditions(raw map[string]interface{}) (Conditions, error) {
	var c Conditions

	if v, ok := raw["enabled"]; ok {
		b := toBool(v)
		c.Enabled = &b
	}
	if v, ok := raw["aircraft_list"]; ok {
		c.AircraftList = toString(v)
	}
	if v, ok := raw["min_alt"]; ok {
		n := toInt(v)
		c.MinAlt = &n
	}
	if v, ok := raw["max_alt"]; ok {
		n := toInt(v)
		c.MaxAlt = &n
	}
	if v, ok := raw["min_vertical_rate"]; ok {
		n := toFloat(v)
		c.MinVerticalRate = &n
	}
	if v, ok := raw["max_vertical_rate"]; ok {
		n := toFloat(v)
		c.MaxVerticalRate = &n
	}
	if v, ok := raw["squawk"]; ok {
		c.Squawk = toStringSlice(v)
	}
	if v, ok := raw["emergency"]; ok {
		c.Emergency = toString(v)
	}
	if v, ok := raw["category"]; ok {
		c.Category = toStringSlice(v)
	}
	if v, ok := raw["callsign_prefix"]; ok {
		c.CallsignPrefix = toStringSlice(v)
	}
	if v, ok := raw["regions"]; ok {
		c.Regions = normalizeRegionList(v)
	}
	if v, ok := raw["transition_regions"]; ok {
		t, err := parseTransition(v)
		if err != nil {
			return c, err
		}
		c.TransitionRegions = &t
	}
	if v, ok := raw["changed_regions"]; ok {
		c.ChangedRegions = toString(v) == "strict"
	}
	if v, ok := raw["latlongring"]; ok {
		ring, err := parseLatLonRing(v)
		if err != nil {
			return c, err
		}
		c.LatLonRing = &ring
	}
	if v, ok := raw["time_ranges"]; ok {
		windows, err := parseTimeRanges(v)
		if err != nil {
			return c, err
		}
		c.TimeRanges = windows
	}
	if v, ok := raw["proximity"]; ok {
		p, err := parseProximity(v)
		if err != nil {
			return c, err
		}
		c.Proximity = &p
	}
	if v, ok := raw["cooldown"]; ok {
		n := toFloat(v)
		c.Cooldown = &n
	}
	if v, ok := raw["rule_cooldown"]; ok {
		n := toFloat(v)
		c.RuleCooldown = &n
	}
	return c, nil
}

func parseActions(raw map[string]interface{}) Actions {
	var a Actions
	if v, ok := raw["callback"]; ok {
		a.Callback = toString(v)
	}
	if v, ok := raw["note"]; ok {
		a.Note = toString(v)
	}
	if v, ok := raw["print"]; ok {
		a.Print = toBool(v)
	}
	if v, ok := raw["webhook"]; ok {
		if parts := toSlice(v); len(parts) >= 2 {
			w := &WebhookAction{Kind: toString(parts[0]), Recipient: toString(parts[1])}
			if len(parts) >= 3 {
				w.Message = toString(parts[2])
			}
			a.Webhook = w
		}
	}
	if v, ok := raw["emit_jsonl"]; ok {
		a.EmitJSONL = toString(v)
	}
	if v, ok := raw["expire_callback"]; ok {
		a.ExpireCallback = toString(v)
	}
	return a
}

func normalizeRegionList(v interface{}) []string {
	list := toStringSlice(v)
	if len(list) == 1 && list[0] == "none" {
		return []string{}
	}
	return list
}

func parseTransition(v interface{}) ([2]string, error) {
	parts := toSlice(v)
	if len(parts) != 2 {
		return [2]string{}, fmt.Errorf("transition_regions must have exactly 2 entries, got %d", len(parts))
	}
	var t [2]string
	for i, p := range parts {
		s := toString(p)
		if s == "none" {
			s = ""
		}
		t[i] = s
	}
	return t, nil
}

func parseLatLonRing(v interface{}) (LatLonRing, error) {
	parts := toSlice(v)
	if len(parts) != 3 {
		return LatLonRing{}, fmt.Errorf("latlongring must have 3 entries [radius_nm, lat, lon], got %d", len(parts))
	}
	return LatLonRing{
		RadiusNM: toFloat(parts[0]),
		Lat:      toFloat(parts[1]),
		Lon:      toFloat(parts[2]),
	}, nil
}

func parseTimeRanges(v interface{}) ([]TimeRange, error) {
	var out []TimeRange
	for _, s := range toStringSlice(v) {
		tr, err := ParseTimeRange(s)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

func parseProximity(v interface{}) (ProximityParams, error) {
	parts := toSlice(v)
	if len(parts) != 2 {
		return ProximityParams{}, fmt.Errorf("proximity must have 2 entries [alt_sep_ft, lat_sep_nm], got %d", len(parts))
	}
	return ProximityParams{AltSepFt: toFloat(parts[0]), LatSepNM: toFloat(parts[1])}, nil
}

// --- loose type coercion helpers: viper/YAML can hand back int, float64,
// string, or []interface{} for the same logical field depending on how it
// was written in the file. ---

func toSlice(v interface{}) []interface{} {
	switch x := v.(type) {
	case []interface{}:
		return x
	case nil:
		return nil
	default:
		return []interface{}{x}
	}
}

func toStringSlice(v interface{}) []string {
	items := toSlice(v)
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, toString(it))
	}
	return out
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}

func toBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return 0
	}
}
