package pipeline

import (
	"strings"

	"mtfcrawler/internal/util"
)

// Canonical property names. Every source label normalizes into this
// vocabulary or, failing that, into a slug of the label itself.
const (
	PropTensileStrength   = "tensile_strength"
	PropYieldStrength     = "yield_strength"
	PropElasticModulus    = "elastic_modulus"
	PropElongationAtBreak = "elongation_at_break"
	PropFlexuralModulus   = "flexural_modulus"
	PropFlexuralStrength  = "flexural_strength"
	PropImpactStrength    = "impact_strength"
	PropDensity           = "density"
	PropGlassTransition   = "glass_transition_temperature"
)

var propertySynonyms = map[string]string{
	"ultimate tensile strength":    PropTensileStrength,
	"tensile strength":             PropTensileStrength,
	"yield strength":               PropYieldStrength,
	"elastic modulus":              PropElasticModulus,
	"young's modulus":              PropElasticModulus,
	"elongation at break":          PropElongationAtBreak,
	"strain at break":              PropElongationAtBreak,
	"flexural modulus":             PropFlexuralModulus,
	"flexural strength":            PropFlexuralStrength,
	"impact strength":              PropImpactStrength,
	"charpy impact":                PropImpactStrength,
	"izod impact":                  PropImpactStrength,
	"density":                      PropDensity,
	"specific gravity":             PropDensity,
	"glass transition temperature": PropGlassTransition,
	"tg":                           PropGlassTransition,
}

// keywordRule matches when any of the anyOf substrings appears, or when
// every allOf substring appears.
type keywordRule struct {
	anyOf     []string
	allOf     []string
	canonical string
}

// keywordRules are evaluated in order; the first match wins. The order is
// behavior-bearing for labels matching several rules ("tensile modulus"
// resolves to tensile_strength) and must not be rearranged.
var keywordRules = []keywordRule{
	{anyOf: []string{"tensile", "tension"}, canonical: PropTensileStrength},
	{anyOf: []string{"young", "elastic"}, canonical: PropElasticModulus},
	{anyOf: []string{"elongation", "strain"}, canonical: PropElongationAtBreak},
	{anyOf: []string{"impact"}, canonical: PropImpactStrength},
	{anyOf: []string{"flexural"}, canonical: PropFlexuralStrength},
	{anyOf: []string{"density"}, canonical: PropDensity},
	{allOf: []string{"temperature", "glass"}, canonical: PropGlassTransition},
}

func (r keywordRule) matches(label string) bool {
	for _, kw := range r.anyOf {
		if strings.Contains(label, kw) {
			return true
		}
	}
	if len(r.allOf) == 0 {
		return false
	}
	for _, kw := range r.allOf {
		if !strings.Contains(label, kw) {
			return false
		}
	}
	return true
}

// NormalizeProperty maps a freeform column label to a canonical property
// name: exact synonym lookup, then the ordered keyword rules, then the slug
// fallback. No label is refused; unknown labels keep their slugged name.
func NormalizeProperty(label string) string {
	name := strings.ToLower(strings.TrimSpace(label))

	if canonical, ok := propertySynonyms[name]; ok {
		return canonical
	}
	for _, rule := range keywordRules {
		if rule.matches(name) {
			return rule.canonical
		}
	}
	return util.SlugKey(name)
}
