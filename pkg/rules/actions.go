package rules

import "adsbactions/pkg/flight"

// executeActions fires every configured action on rule. other is nil for
// a per-position match and the paired flight for a proximity match.
// Every execution — even ones with no `callback` action — records a
// cooldown entry keyed by f's flight id, so a subsequent `cooldown`
// condition on this rule takes effect (spec.md §4.4).
func (e *Engine) executeActions(rule *Rule, f, other *flight.Flight, now float64) {
	a := &rule.Actions

	if a.Callback != "" {
		e.fireCallback(a.Callback, rule.Name, f, other)
	}
	if a.Note != "" {
		f.Lock()
		f.Flags["note"] = a.Note
		f.Unlock()
	}
	if a.Print {
		e.logger.Printf("rule %q matched flight=%s other=%s lat=%.4f lon=%.4f alt=%d",
			rule.Name, f.FlightID, otherID(other), f.LastLoc.Lat, f.LastLoc.Lon, f.LastLoc.AltBaro)
	}
	if a.Webhook != nil {
		e.fireWebhook(a.Webhook, rule.Name, f)
	}
	if a.EmitJSONL != "" {
		e.fireEmitJSONL(a.EmitJSONL, rule.Name, f)
	}

	e.cooldownLog.Log(rule.Name, f.FlightID, now)
	e.executionLog.Record(rule.Name, a.Note)
}

func otherID(other *flight.Flight) string {
	if other == nil {
		return ""
	}
	return other.FlightID
}

func (e *Engine) fireCallback(name, ruleName string, f, other *flight.Flight) {
	defer e.recoverCallback(ruleName, name)

	var found bool
	if other != nil {
		found = e.callbacks.CallPair(name, f, other)
	} else {
		found = e.callbacks.Call(name, f)
	}
	if !found {
		e.logger.Printf("unknown callback %q on rule %q", name, ruleName)
		e.stats.UnknownActions.Add(1)
		return
	}
	e.stats.CallbacksFired.Add(1)
}

// recoverCallback implements spec.md §4.4/§7: an unhandled exception in a
// user callback is caught, logged, and counted, and never tears down the
// rule loop.
func (e *Engine) recoverCallback(ruleName, callbackName string) {
	if r := recover(); r != nil {
		e.logger.Printf("callback %q on rule %q panicked: %v", callbackName, ruleName, r)
		e.stats.CallbackFailures.Add(1)
	}
}

func (e *Engine) fireWebhook(w *WebhookAction, ruleName string, f *flight.Flight) {
	if e.webhooks == nil {
		return
	}
	ok, err := e.webhooks.Dispatch(w.Kind, w.Recipient, w.Message, f)
	if !ok {
		e.logger.Printf("unknown webhook kind %q on rule %q", w.Kind, ruleName)
		e.stats.UnknownActions.Add(1)
		return
	}
	if err != nil {
		e.logger.Printf("webhook %q on rule %q failed: %v", w.Kind, ruleName, err)
	}
}

func (e *Engine) fireEmitJSONL(path, ruleName string, f *flight.Flight) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Append(path, f.LastLoc); err != nil {
		e.logger.Printf("emit_jsonl on rule %q failed: %v", ruleName, err)
	}
}
