package usecase

import (
	"LiqPulse/internal/domain/models"
)

// Trigger thresholds, fixed inputs calibrated by the backtest.
const (
	extremeLiqPct  = 0.90
	elevatedLiqPct = 0.70
	highVolumePct  = 0.80
)

// Condition is everything a trigger predicate may look at for one bar.
type Condition struct {
	Cur   models.FeatureSnapshot
	Prev  models.FeatureSnapshot
	Onset bool

	// MomentumInstrument selects which instrument's sign drives flip rules.
	MomentumInstrument string
}

// Flip returns the new momentum sign when the current bar flipped versus the
// previous bar and the new sign is non-zero; 0 otherwise.
func (c Condition) Flip() int {
	cur := c.Cur.Sign(c.MomentumInstrument)
	if cur != 0 && cur != c.Prev.Sign(c.MomentumInstrument) {
		return cur
	}
	return 0
}

// Rule is one trigger definition. Cooldown equals hold in the current rule
// set but is carried separately so the two can diverge.
type Rule struct {
	ID           string
	HoldBars     int
	CooldownBars int
	// Trigger returns the trade direction and whether the rule fired.
	Trigger func(c Condition) (models.Direction, bool)
}

// DefaultRules returns the four validated trigger rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			// extreme long liquidations on a fresh reading: fade SHORT
			ID: "SIG-A", HoldBars: 8, CooldownBars: 8,
			Trigger: func(c Condition) (models.Direction, bool) {
				return models.Short, c.Onset && c.Cur.LongLiqPct >= extremeLiqPct
			},
		},
		{
			// extreme short liquidations on a fresh reading: fade LONG
			ID: "SIG-B", HoldBars: 8, CooldownBars: 8,
			Trigger: func(c Condition) (models.Direction, bool) {
				return models.Long, c.Onset && c.Cur.ShortLiqPct >= extremeLiqPct
			},
		},
		{
			// bearish momentum flip with elevated long liquidations
			ID: "SIG-C", HoldBars: 8, CooldownBars: 8,
			Trigger: func(c Condition) (models.Direction, bool) {
				return models.Short, c.Flip() == -1 && c.Cur.LongLiqPct >= elevatedLiqPct
			},
		},
		{
			// any momentum flip with high volume and elevated total
			// liquidations, traded in the flip's direction
			ID: "SIG-D", HoldBars: 12, CooldownBars: 12,
			Trigger: func(c Condition) (models.Direction, bool) {
				flip := c.Flip()
				if flip == 0 || c.Cur.VolumePct < highVolumePct || c.Cur.TotalLiqPct < elevatedLiqPct {
					return "", false
				}
				if flip == 1 {
					return models.Long, true
				}
				return models.Short, true
			},
		},
	}
}

// SignalIDs lists the rule ids in table order.
func SignalIDs(rules []Rule) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

// Evaluate checks every rule independently against the current bar; firing
// one rule never suppresses another. A rule in its cooldown window
// (now - lastFire < cooldownBars * barSecs) is suppressed regardless of
// whether its prior trade has closed. Pure: no state is mutated here.
func Evaluate(rules []Rule, c Condition, now int64, barSecs int64, states map[string]*models.SignalState) []models.Fire {
	var fires []models.Fire
	for _, rule := range rules {
		dir, ok := rule.Trigger(c)
		if !ok {
			continue
		}
		if st := states[rule.ID]; st != nil && st.LastFireTS != nil {
			if now-*st.LastFireTS < int64(rule.CooldownBars)*barSecs {
				continue
			}
		}
		fires = append(fires, models.Fire{SignalID: rule.ID, Direction: dir, HoldBars: rule.HoldBars})
	}
	return fires
}
