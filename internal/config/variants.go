package config

// Built-in variants.
const (
	VariantMinimal  = "minimal"
	VariantStandard = "standard"
	VariantStrict   = "strict"

	DefaultVariant = VariantStandard
)

// presets hold the variant-specific keys layered over the defaults.
var presets = map[string]map[string]interface{}{
	// No threshold and no unknown notice. The class count is pinned so a
	// label file of a different length fails at startup.
	VariantMinimal: {
		"variant.numclasses": 120,
	},
	VariantStandard: {
		"variant.threshold":    0.5,
		"variant.copy.unknown": "Unknown breed.",
	},
	VariantStrict: {
		"variant.threshold":    0.7,
		"variant.copy.title":   "Dog Breed Classifier (strict)",
		"variant.copy.unknown": "Unknown dog breed.",
	},
}

// Variants lists the built-in variant names.
func Variants() []string {
	return []string{VariantMinimal, VariantStandard, VariantStrict}
}
