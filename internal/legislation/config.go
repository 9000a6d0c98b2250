// Package legislation normalizes free-form breach descriptions into
// canonical legislation references.
package legislation

// Config holds the lookup tables that drive title normalization. The tables
// are injected configuration, not compiled-in behaviour: new abbreviations
// and variants are added here (or in an override file loaded at startup)
// without touching the matching logic.
type Config struct {
	// Abbreviations maps a short code, uppercase, to its full statutory
	// name. This is the single largest source of normalization logic.
	Abbreviations map[string]string

	// KnownYears supplies the enactment year for well-known titles when
	// the source text carries none. Keys are lowercase title substrings.
	KnownYears map[string]int

	// CanonicalTitles maps lowercase spelling variants to the one
	// canonical title chosen to represent them.
	CanonicalTitles map[string]string
}

// DefaultConfig returns the built-in lookup tables covering the statutes
// that dominate UK enforcement records.
func DefaultConfig() Config {
	return Config{
		Abbreviations: map[string]string{
			"HSWA":   "Health and Safety at Work etc. Act",
			"HASAWA": "Health and Safety at Work etc. Act",
			"HSW":    "Health and Safety at Work etc. Act",
			"PUWER":  "Provision and Use of Work Equipment Regulations",
			"LOLER":  "Lifting Operations and Lifting Equipment Regulations",
			"COSHH":  "Control of Substances Hazardous to Health Regulations",
			"RIDDOR": "Reporting of Injuries, Diseases and Dangerous Occurrences Regulations",
			"CDM":    "Construction (Design and Management) Regulations",
			"MHSWR":  "Management of Health and Safety at Work Regulations",
			"WAHR":   "Work at Height Regulations",
			"DSEAR":  "Dangerous Substances and Explosive Atmospheres Regulations",
			"CAR":    "Control of Asbestos Regulations",
			"CLAW":   "Control of Lead at Work Regulations",
			"CVR":    "Control of Vibration at Work Regulations",
			"CNWR":   "Control of Noise at Work Regulations",
			"EPA":    "Environmental Protection Act",
			"RRO":    "Regulatory Reform (Fire Safety) Order",
			"GSIUR":  "Gas Safety (Installation and Use) Regulations",
			"EAWR":   "Electricity at Work Regulations",
		},
		KnownYears: map[string]int{
			"health and safety at work":               1974,
			"provision and use of work equipment":     1998,
			"lifting operations and lifting":          1998,
			"control of substances hazardous":         2002,
			"reporting of injuries":                   2013,
			"construction (design and management)":    2015,
			"management of health and safety at work": 1999,
			"work at height":                          2005,
			"dangerous substances and explosive":      2002,
			"control of asbestos":                     2012,
			"control of lead at work":                 2002,
			"control of vibration at work":            2005,
			"control of noise at work":                2005,
			"environmental protection act":            1990,
			"regulatory reform (fire safety)":         2005,
			"gas safety (installation":                1998,
			"electricity at work":                     1989,
			"food safety act":                         1990,
			"workplace (health, safety and welfare)":  1992,
		},
		// Keys are in lookup form: lowercase, punctuation stripped. The
		// canonical form's own key must map to itself so cleaning stays
		// idempotent.
		CanonicalTitles: map[string]string{
			"health and safety at work act":     "Health and Safety at Work etc. Act",
			"health and safety at work etc act": "Health and Safety at Work etc. Act",
			"health and safety etc at work act": "Health and Safety at Work etc. Act",
			"workplace health safety and welfare regulations": "Workplace (Health, Safety and Welfare) Regulations",
			"construction design and management regulations":  "Construction (Design and Management) Regulations",
			"gas safety installation and use regulations":     "Gas Safety (Installation and Use) Regulations",
			"regulatory reform fire safety order":             "Regulatory Reform (Fire Safety) Order",
			"reporting of injuries diseases and dangerous occurrences regulations": "Reporting of Injuries, Diseases and Dangerous Occurrences Regulations",
		},
	}
}
