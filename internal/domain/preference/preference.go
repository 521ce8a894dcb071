package preference

import "strings"

// Preference holds what the user told us about themselves for one request.
type Preference struct {
	skinType     string
	priceCeiling int
}

// New creates a Preference. A ceiling of zero or below means no price constraint.
func New(skinType string, priceCeiling int) Preference {
	if priceCeiling < 0 {
		priceCeiling = 0
	}
	return Preference{skinType: strings.TrimSpace(skinType), priceCeiling: priceCeiling}
}

// SkinType returns the raw skin-type string, e.g. "건성, 민감성".
func (p Preference) SkinType() string { return p.skinType }

// PriceCeiling returns the maximum price in won, 0 when unconstrained.
func (p Preference) PriceCeiling() int { return p.priceCeiling }

// HasPriceCeiling reports whether a positive ceiling was supplied.
func (p Preference) HasPriceCeiling() bool { return p.priceCeiling > 0 }

// SkinTypes splits the skin-type string on commas and returns the trimmed,
// non-empty tokens in the order the user gave them.
func (p Preference) SkinTypes() []string {
	if p.skinType == "" {
		return nil
	}
	parts := strings.Split(p.skinType, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
