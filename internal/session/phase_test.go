package session

import (
	"encoding/json"
	"testing"
)

func TestPhaseProjections(t *testing.T) {
	tests := []struct {
		phase       Phase
		name        string
		side        Side
		label       string
		instruction string
	}{
		{RightExhale, "right_exhale", Right, "Exhale", "Close left nostril, exhale through right"},
		{LeftInhale, "left_inhale", Left, "Inhale", "Close right nostril, inhale through left"},
		{LeftExhale, "left_exhale", Left, "Exhale", "Close right nostril, exhale through left"},
		{RightInhale, "right_inhale", Right, "Inhale", "Close left nostril, inhale through right"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.phase.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.phase.Side(); got != tt.side {
				t.Errorf("Side() = %q, want %q", got, tt.side)
			}
			if got := tt.phase.ClosedSide(); got != tt.side.Opposite() {
				t.Errorf("ClosedSide() = %q, want %q", got, tt.side.Opposite())
			}
			if got := tt.phase.Label(); got != tt.label {
				t.Errorf("Label() = %q, want %q", got, tt.label)
			}
			if got := tt.phase.Instruction(); got != tt.instruction {
				t.Errorf("Instruction() = %q, want %q", got, tt.instruction)
			}
		})
	}
}

func TestSequenceOrder(t *testing.T) {
	want := []Phase{RightExhale, LeftInhale, LeftExhale, RightInhale}
	for i, p := range want {
		if Sequence[i] != p {
			t.Errorf("Sequence[%d] = %s, want %s", i, Sequence[i], p)
		}
		if PhaseAt(i+len(Sequence)) != p {
			t.Errorf("PhaseAt(%d) = %s, want %s", i+len(Sequence), PhaseAt(i+len(Sequence)), p)
		}
	}
	if PhaseAt(-1) != RightInhale {
		t.Errorf("PhaseAt(-1) = %s, want right_inhale", PhaseAt(-1))
	}
}

func TestPhaseJSON(t *testing.T) {
	data, err := json.Marshal(LeftExhale)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"left_exhale"` {
		t.Errorf("Marshal = %s, want \"left_exhale\"", data)
	}

	var p Phase
	if err := json.Unmarshal([]byte(`"right_inhale"`), &p); err != nil {
		t.Fatal(err)
	}
	if p != RightInhale {
		t.Errorf("Unmarshal = %s, want right_inhale", p)
	}
	if err := json.Unmarshal([]byte(`"hold"`), &p); err == nil {
		t.Error("unknown phase should fail to unmarshal")
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{60, "01:00"},
		{125, "02:05"},
		{3599, "59:59"},
		{3600, "60:00"},
		{6001, "100:01"},
		{-3, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.seconds); got != tt.want {
			t.Errorf("FormatTime(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"defaults", DefaultSettings(), false},
		{"silent", Settings{PaceSeconds: 6, Volume: 0}, false},
		{"zero pace", Settings{PaceSeconds: 0, Volume: 0.5}, true},
		{"loud", Settings{PaceSeconds: 4, Volume: 1.5}, true},
		{"negative limit", Settings{PaceSeconds: 4, Volume: 0.5, PracticeLimitMinutes: -1}, true},
	}
	for _, tt := range tests {
		err := tt.s.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
