package session

import (
	"encoding/json"
	"fmt"
)

// Phase is one step of the alternate-nostril cycle.
type Phase int

const (
	RightExhale Phase = iota
	LeftInhale
	LeftExhale
	RightInhale
)

// Sequence is the fixed order phases are practised in. A cycle is one full
// pass through it.
var Sequence = [...]Phase{RightExhale, LeftInhale, LeftExhale, RightInhale}

var phaseNames = map[Phase]string{
	RightExhale: "right_exhale",
	LeftInhale:  "left_inhale",
	LeftExhale:  "left_exhale",
	RightInhale: "right_inhale",
}

var phaseFromName = map[string]Phase{
	"right_exhale": RightExhale,
	"left_inhale":  LeftInhale,
	"left_exhale":  LeftExhale,
	"right_inhale": RightInhale,
}

// Side is a nostril.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Opposite returns the other nostril.
func (s Side) Opposite() Side {
	if s == Left {
		return Right
	}
	return Left
}

// PhaseAt returns the phase at sequence index i.
func PhaseAt(i int) Phase {
	n := len(Sequence)
	return Sequence[((i%n)+n)%n]
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := phaseFromName[s]
	if !ok {
		return fmt.Errorf("unknown phase %q", s)
	}
	*p = v
	return nil
}

// Side returns the nostril breathing in this phase.
func (p Phase) Side() Side {
	if p == LeftInhale || p == LeftExhale {
		return Left
	}
	return Right
}

// Inhale reports whether the phase draws breath in.
func (p Phase) Inhale() bool {
	return p == LeftInhale || p == RightInhale
}

// Label is the short phase caption.
func (p Phase) Label() string {
	if p.Inhale() {
		return "Inhale"
	}
	return "Exhale"
}

// ClosedSide is the nostril held shut during the phase.
func (p Phase) ClosedSide() Side {
	return p.Side().Opposite()
}

// Instruction is the full guidance line, e.g.
// "Close left nostril, exhale through right".
func (p Phase) Instruction() string {
	action := "exhale through"
	if p.Inhale() {
		action = "inhale through"
	}
	return fmt.Sprintf("Close %s nostril, %s %s", p.ClosedSide(), action, p.Side())
}

// FormatTime renders seconds as zero-padded MM:SS. Minutes do not roll over
// into hours.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
