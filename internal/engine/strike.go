package engine

import (
	"github.com/pefman/w40k-challenge/internal/game"
	"github.com/pefman/w40k-challenge/internal/models"
)

// wound is one successful wound test and the tags it picked up.
type wound struct {
	breaching bool
	shred     bool
}

// attackLine is what allocation needs to know about the attack.
type attackLine struct {
	AP             int
	Damage         int
	DamageDelta    int
	DamageSetToOne bool
	// SaveOnlyIfAble skips the save dice when no save is possible.
	SaveOnlyIfAble bool
}

func hitSucceeds(roll, tn, crit int) bool {
	return (tn <= 6 && roll >= tn) || (crit > 0 && roll >= crit)
}

// woundSucceeds applies Poisoned and Rending to one wound roll and tags
// Breaching and Shred.
func woundSucceeds(roll, tableTN int, p models.WeaponProfile) (wound, bool) {
	tn := tableTN
	if t, ok := p.RuleValue(models.RulePoisoned); ok {
		tn = min(tn, t)
	}
	ok := tn <= 6 && roll >= tn
	if t, has := p.RuleValue(models.RuleRending); has && roll >= t {
		ok = true
	}
	if !ok {
		return wound{}, false
	}
	var w wound
	if t, has := p.RuleValue(models.RuleBreaching); has && roll >= t {
		w.breaching = true
	}
	if t, has := p.RuleValue(models.RuleShred); has && roll >= t {
		w.shred = true
	}
	return w, true
}

// woundDamage is the damage of one unsaved wound after reductions, never below 1.
func woundDamage(l attackLine, shred bool, reduction int) int {
	d := l.Damage + l.DamageDelta
	if l.DamageSetToOne {
		d = 1
	} else if shred {
		d++
	}
	return max(1, d-reduction)
}

// feelNoPain is the defender's best FNP threshold, 0 when it has none.
func feelNoPain(c models.Character, b models.Boon) int {
	return game.CritThreshold(models.SumRule(c.Rules, models.RuleFeelNoPain), b.FeelNoPain)
}

// allocate takes saves, Feel No Pain and damage for wounds against def
// and applies the result. It returns the wounds actually removed.
func (e *Engine) allocate(s models.CombatState, def models.Side, wounds []wound, l attackLine, dmod game.DefenceMod) (models.CombatState, int) {
	if len(wounds) == 0 {
		return s, 0
	}
	dc := e.char(def)
	dst := s.Side(def)

	var normal, breach []wound
	for _, w := range wounds {
		if w.breaching {
			breach = append(breach, w)
		} else {
			normal = append(normal, w)
		}
	}
	rerolled := !dmod.RerollOneSave
	var unsaved []wound
	pool := func(ws []wound, ap int) {
		if len(ws) == 0 {
			return
		}
		tn, ok := game.EffectiveSave(dc.Stats.Sv, dc.Stats.Inv, ap)
		if !ok && l.SaveOnlyIfAble {
			s = s.Logf(models.SeverityDanger, "No save for %s against AP%d", dc.Name, ap)
			unsaved = append(unsaved, ws...)
			return
		}
		rolls := e.dice.RollNd6(len(ws))
		if !ok {
			// one die per wound even when no save is possible
			s = s.Logf(models.SeverityDanger, "No save for %s against AP%d %v", dc.Name, ap, rolls)
			unsaved = append(unsaved, ws...)
			return
		}
		saved := 0
		for i, r := range rolls {
			if r < tn && !rerolled {
				rerolled = true
				rr := e.dice.RollD6()
				s = s.Logf(models.SeverityInfo, "Every Strike Foreseen: save %d re-rolled to %d", r, rr)
				r = rr
			}
			if r >= tn {
				saved++
			} else {
				unsaved = append(unsaved, ws[i])
			}
		}
		s = s.Logf(models.SeverityInfo, "Saves %v vs %d+: %d saved", rolls, tn, saved)
	}
	pool(normal, l.AP)
	pool(breach, 2)

	if fnp := feelNoPain(dc, dst.Boon()); fnp > 0 && len(unsaved) > 0 {
		rolls := e.dice.RollNd6(len(unsaved))
		var left []wound
		for i, r := range rolls {
			if r < fnp {
				left = append(left, unsaved[i])
			}
		}
		s = s.Logf(models.SeverityInfo, "Feel No Pain %d+: %v cancels %d wound(s)", fnp, rolls, len(unsaved)-len(left))
		unsaved = left
	}
	if len(unsaved) == 0 {
		return s, 0
	}

	reduction := models.SumRule(dc.Rules, models.RuleEternalWarrior) + dmod.DamageReduction
	total := 0
	for _, w := range unsaved {
		total += woundDamage(l, w.shred, reduction)
	}
	before := dst.CurrentWounds
	dst = dst.TakeWounds(total)
	s = s.WithSide(def, dst)
	sev := models.SeverityWarning
	if dst.IsCasualty {
		sev = models.SeverityDanger
	}
	s = s.Logf(sev, "%d unsaved wound(s) deal %d damage: %s %d -> %d", len(unsaved), total, dc.Name, before, dst.CurrentWounds)
	if dst.IsCasualty {
		s = s.Logf(models.SeverityDanger, "%s is removed as a casualty", dc.Name)
	}
	return s, before - dst.CurrentWounds
}

func (e *Engine) credit(s models.CombatState, side models.Side, dealt int) models.CombatState {
	st := s.Side(side)
	st.WoundsInflicted += dealt
	return s.WithSide(side, st)
}

// selfWounds inflicts n AP2 D1 wounds on side. With invOnly each wound
// allows an invulnerable save; otherwise none.
func (e *Engine) selfWounds(s models.CombatState, side models.Side, n int, invOnly bool) models.CombatState {
	c := e.char(side)
	st := s.Side(side)
	for i := 0; i < n; i++ {
		if st.IsCasualty {
			break
		}
		if invOnly && c.Stats.Inv > 0 {
			r := e.dice.RollD6()
			if r >= c.Stats.Inv {
				s = s.Logf(models.SeverityInfo, "%s saves a wound on an invulnerable %d", c.Name, r)
				continue
			}
			s = s.Logf(models.SeverityWarning, "%s fails an invulnerable save on a %d", c.Name, r)
		}
		st = st.TakeWounds(1)
	}
	s = s.WithSide(side, st)
	if st.IsCasualty {
		s = s.Logf(models.SeverityDanger, "%s is removed as a casualty", c.Name)
	}
	return s
}

func (e *Engine) strikeContext(s models.CombatState, side models.Side) game.StrikeContext {
	st := s.Side(side)
	ctx := game.StrikeContext{
		Round:         s.Round,
		Self:          e.char(side),
		Opponent:      e.char(side.Other()),
		State:         st,
		OpponentState: s.Side(side.Other()),
		HasAdvantage:  s.Advantage == side,
	}
	if st.SelectedWeapon != nil {
		ctx.Profile = e.profile(s, side)
		ctx.WeaponName = e.weaponName(s, side)
	}
	return ctx
}

// resolveStrike runs the whole strike step in the fixed dice order.
func (e *Engine) resolveStrike(s models.CombatState) models.CombatState {
	first := s.Advantage
	if first == models.SideNone {
		fail(s, "strike step without challenge advantage")
	}

	for _, side := range sides {
		if st := s.Side(side); st.SelectedGambit == models.DutyIsSacrifice && st.Sacrifice > 0 {
			s = s.Logf(models.SeverityWarning, "Duty is Sacrifice: %s suffers %d wound(s)", e.char(side).Name, st.Sacrifice)
			s = e.selfWounds(s, side, st.Sacrifice, true)
		}
	}
	for _, side := range sides {
		if s.Side(side).SelectedGambit == models.BeseechTheGods {
			s = e.beseech(s, side)
		}
	}
	for _, side := range sides {
		if s.Side(side).SelectedGambit == models.ADeathLongForeseen {
			s = e.deathLongForeseen(s, side)
		}
	}

	ones := map[models.Side]int{}
	for _, atk := range []models.Side{first, first.Other()} {
		if !e.canStrike(s, atk) {
			if s.Side(atk).IsCasualty {
				s = s.Logf(models.SeverityInfo, "%s cannot strike", e.char(atk).Name)
			}
			continue
		}
		var n int
		s, n = e.attackSequence(s, atk)
		ones[atk] = n
	}

	for _, side := range sides {
		st := s.Side(side)
		if game.StrikeModifiers(st.SelectedGambit, game.StrikeContext{}).SelfWoundOnOnes && ones[side] > 0 && !st.IsCasualty {
			s = s.Logf(models.SeverityDanger, "Biological Overload: %s suffers %d wound(s)", e.char(side).Name, ones[side])
			s = e.selfWounds(s, side, ones[side], false)
		}
	}
	s.Phase = models.PhaseGlory
	return s
}

// canStrike: the target must live; the attacker must live unless its
// gambit lets a slain model strike.
func (e *Engine) canStrike(s models.CombatState, atk models.Side) bool {
	if s.Side(atk.Other()).IsCasualty {
		return false
	}
	st := s.Side(atk)
	if !st.IsCasualty {
		return true
	}
	return game.DefenceModifiers(st.SelectedGambit, e.strikeContext(s, atk)).StrikesWhenSlain
}

// attackSequence resolves hits, wounds, saves and damage for atk. It
// returns the number of unmodified 1s rolled to hit.
func (e *Engine) attackSequence(s models.CombatState, atk models.Side) (models.CombatState, int) {
	def := atk.Other()
	ac, dc := e.char(atk), e.char(def)
	ctx := e.strikeContext(s, atk)
	if ctx.State.SelectedGambit == models.FlurryOfBlows {
		ctx.D3 = e.dice.RollD3()
		s = s.Logf(models.SeverityInfo, "Flurry of Blows: +%d attacks", ctx.D3)
	}
	mod := game.StrikeModifiers(ctx.State.SelectedGambit, ctx)
	dctx := e.strikeContext(s, def)
	dmod := game.DefenceModifiers(dctx.State.SelectedGambit, dctx)
	prof := ctx.Profile
	boon, dboon := ctx.State.Boon(), dctx.State.Boon()

	ws := ac.Stats.WS + mod.WSDelta + boon.WS
	attacks := game.ProfileAttacks(ac, prof) + mod.AttacksDelta + boon.A
	if mod.TauntAndBait {
		if ws <= dc.Stats.WS {
			ws = dc.Stats.WS - 1
		} else {
			ws = dc.Stats.WS
		}
		if attacks <= dc.Stats.A {
			attacks = dc.Stats.A - 1
		} else {
			attacks = dc.Stats.A
		}
		ws = max(1, ws)
	}
	if s.Advantage == atk {
		attacks++
	}
	attacks = max(1, attacks)
	if mod.SingleAttackCap {
		attacks = 1
	}
	if mod.NoAttacks {
		s = s.Logf(models.SeverityInfo, "%s makes no attacks", ac.Name)
		return s, 0
	}

	str := max(1, game.ProfileStrength(ac, prof)+mod.StrengthDelta+boon.S+dmod.OpponentStrengthDelta)
	defWS := dc.Stats.WS + dboon.WS
	defT := dc.Stats.T + dboon.T
	if dmod.ToughnessOverride > 0 {
		defT = dmod.ToughnessOverride
	}
	ap := game.ImproveAP(prof.AP, mod.APImprovement)
	w, _ := prof.RuleValue(models.RuleCriticalHit)
	crit := game.CritThreshold(w, mod.CritThreshold)
	hitTN := game.HitTN(ws, defWS)
	if mod.HitTN > 0 {
		hitTN = mod.HitTN
	}
	s = s.Logf(models.SeverityInfo, "%s strikes with %s: %d attack(s), WS%d vs WS%d, S%d vs T%d, AP%d",
		ac.Name, prof.Name, attacks, ws, defWS, str, defT, ap)

	rolls := e.dice.RollNd6(attacks)
	hits, ones, misses := 0, 0, 0
	for _, r := range rolls {
		if r == 1 {
			ones++
		}
		if hitSucceeds(r, hitTN, crit) {
			hits++
		} else {
			misses++
		}
	}
	s = s.Logf(models.SeverityInfo, "Hit rolls %v vs %d+: %d hit(s)", rolls, hitTN, hits)
	if dmod.GuardUp && misses > 0 {
		dst := s.Side(def)
		dst.GuardUpBonus += misses
		s = s.WithSide(def, dst)
	}
	if hits == 0 {
		return s, ones
	}

	rolls = e.dice.RollNd6(hits)
	var wounds []wound
	curT := defT
	for _, r := range rolls {
		tag, ok := woundSucceeds(r, game.WoundTN(str, curT), prof)
		if !ok {
			continue
		}
		wounds = append(wounds, tag)
		if mod.Phage {
			curT = max(1, curT-1)
		}
	}
	s = s.Logf(models.SeverityInfo, "Wound rolls %v: %d wound(s)", rolls, len(wounds))

	defWasAlive := !s.Side(def).IsCasualty
	line := attackLine{AP: ap, Damage: prof.Damage, DamageDelta: mod.DamageDelta, DamageSetToOne: mod.DamageSetToOne}
	s, dealt := e.allocate(s, def, wounds, line, dmod)
	s = e.credit(s, atk, dealt)

	if defWasAlive && s.Side(def).IsCasualty && dmod.SpitefulDemise {
		s = e.spitefulDemise(s, def)
	}
	return s, ones
}

// spitefulDemise is the automatic S6 AP4 D2 Breaching(5+) hit a slain
// model makes on its killer.
func (e *Engine) spitefulDemise(s models.CombatState, from models.Side) models.CombatState {
	target := from.Other()
	tc := e.char(target)
	tst := s.Side(target)
	s = s.Logf(models.SeverityDanger, "Spiteful Demise: %s strikes back as it falls", e.char(from).Name)
	demise := models.WeaponProfile{
		Name:   "Spiteful Demise",
		AP:     4,
		Damage: 2,
		Rules:  []models.SpecialRule{models.Rule(models.RuleBreaching, 5)},
	}
	r := e.dice.RollD6()
	tn := game.WoundTN(6, tc.Stats.T+tst.Boon().T)
	tag, ok := woundSucceeds(r, tn, demise)
	if !ok {
		return s.Logf(models.SeverityInfo, "Spiteful Demise: wound roll %d vs %d+ fails", r, tn)
	}
	dmod := game.DefenceModifiers(tst.SelectedGambit, e.strikeContext(s, target))
	s, dealt := e.allocate(s, target, []wound{tag}, attackLine{AP: demise.AP, Damage: demise.Damage, SaveOnlyIfAble: true}, dmod)
	return e.credit(s, from, dealt)
}

func (e *Engine) beseech(s models.CombatState, side models.Side) models.CombatState {
	c := e.char(side)
	total, ok := willpowerCheck(e.dice, c.Stats.WP)
	if ok {
		st := s.Side(side)
		st.ChallengeBoon = st.ChallengeBoon.Plus(models.Boon{S: 1, A: 1})
		s = s.WithSide(side, st)
		return s.Logf(models.SeveritySuccess, "Beseech the Gods: %s passes willpower (%d): +1 S, +1 A", c.Name, total)
	}
	s = s.Logf(models.SeverityDanger, "Beseech the Gods: %s fails willpower (%d)", c.Name, total)
	return e.selfWounds(s, side, 1, false)
}

func (e *Engine) deathLongForeseen(s models.CombatState, side models.Side) models.CombatState {
	c := e.char(side)
	boons := []struct {
		name string
		boon models.Boon
	}{
		{"Feel No Pain (5+)", models.Boon{FeelNoPain: 5}},
		{"+1 A", models.Boon{A: 1}},
		{"+2 initiative (focus already rolled)", models.Boon{}},
	}
	for _, b := range boons {
		total, ok := willpowerCheck(e.dice, c.Stats.WP)
		if !ok {
			s = s.Logf(models.SeverityWarning, "A Death Long Foreseen: %s fails willpower (%d) for %s", c.Name, total, b.name)
			continue
		}
		st := s.Side(side)
		st.RoundBoon = st.RoundBoon.Plus(b.boon)
		s = s.WithSide(side, st)
		s = s.Logf(models.SeveritySuccess, "A Death Long Foreseen: %s passes willpower (%d): %s", c.Name, total, b.name)
	}
	return s
}
