package sheet

import (
	"fmt"
	"strings"
)

// Tone is a palette slot a front end maps to concrete colours.
type Tone string

// Palette slots.
const (
	ToneDefault Tone = ""
	ToneNeutral Tone = "neutral"
	ToneAlert   Tone = "alert"
	ToneAccent  Tone = "accent"
	ToneMuted   Tone = "muted"
)

// ParseTone validates a tone name.
func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case ToneNeutral, ToneAlert, ToneAccent, ToneMuted:
		return t, nil
	default:
		return ToneDefault, fmt.Errorf("unknown tone %q (want neutral, alert, accent or muted)", s)
	}
}

// SignPolicy maps the sign of a rate to a tone.
type SignPolicy struct {
	Positive Tone
	Negative Tone
	Zero     Tone
}

// DefaultSignPolicy colours gains with the alert slot and losses with the
// accent slot, the convention of Korean brokerage apps.
func DefaultSignPolicy() SignPolicy {
	return SignPolicy{Positive: ToneAlert, Negative: ToneAccent, Zero: ToneNeutral}
}

// ToneFor returns the tone of v.
func (p SignPolicy) ToneFor(v float64) Tone {
	switch {
	case v > 0:
		return p.Positive
	case v < 0:
		return p.Negative
	default:
		return p.Zero
	}
}

// ParseSignPolicy builds a policy from a {positive, negative, zero} map,
// filling missing keys from the default policy.
func ParseSignPolicy(m map[string]string) (SignPolicy, error) {
	p := DefaultSignPolicy()
	for k, v := range m {
		tone, err := ParseTone(v)
		if err != nil {
			return p, fmt.Errorf("sign_colors.%s: %w", k, err)
		}
		switch strings.ToLower(k) {
		case "positive":
			p.Positive = tone
		case "negative":
			p.Negative = tone
		case "zero":
			p.Zero = tone
		default:
			return p, fmt.Errorf("unknown sign_colors key %q", k)
		}
	}
	return p, nil
}
