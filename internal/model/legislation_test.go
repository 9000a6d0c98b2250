package model

import "testing"

func intPtr(v int) *int { return &v }

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name string
		a    LegislationReference
		b    LegislationReference
		same bool
	}{
		{
			name: "same title and year collide",
			a:    LegislationReference{Title: "Work at Height Regulations", Year: intPtr(2005)},
			b:    LegislationReference{Title: "Work at Height Regulations", Year: intPtr(2005)},
			same: true,
		},
		{
			name: "different years are distinct",
			a:    LegislationReference{Title: "Control of Asbestos Regulations", Year: intPtr(2006)},
			b:    LegislationReference{Title: "Control of Asbestos Regulations", Year: intPtr(2012)},
			same: false,
		},
		{
			name: "nil year reads as unknown, distinct from a known year",
			a:    LegislationReference{Title: "Control of Asbestos Regulations"},
			b:    LegislationReference{Title: "Control of Asbestos Regulations", Year: intPtr(2012)},
			same: false,
		},
		{
			name: "nil number is excluded from the key",
			a:    LegislationReference{Title: "Gas Safety Regulations", Year: intPtr(1998)},
			b:    LegislationReference{Title: "Gas Safety Regulations", Year: intPtr(1998), Number: intPtr(2451)},
			same: false,
		},
		{
			name: "section label does not participate in identity",
			a:    LegislationReference{Title: "Work at Height Regulations", Year: intPtr(2005), SectionLabel: "Regulation 4"},
			b:    LegislationReference{Title: "Work at Height Regulations", Year: intPtr(2005), SectionLabel: "Regulation 6(3)"},
			same: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.IdentityKey() == tt.b.IdentityKey()
			if got != tt.same {
				t.Errorf("IdentityKey() equality = %v, want %v (%q vs %q)",
					got, tt.same, tt.a.IdentityKey(), tt.b.IdentityKey())
			}
		})
	}
}

func TestPopulatedFields(t *testing.T) {
	ref := LegislationReference{Title: "Work at Height Regulations"}
	if got := ref.PopulatedFields(); got != 0 {
		t.Errorf("PopulatedFields() = %d, want 0", got)
	}

	ref.Year = intPtr(2005)
	ref.SectionLabel = "Regulation 4"
	if got := ref.PopulatedFields(); got != 2 {
		t.Errorf("PopulatedFields() = %d, want 2", got)
	}

	ref.Number = intPtr(735)
	if got := ref.PopulatedFields(); got != 3 {
		t.Errorf("PopulatedFields() = %d, want 3", got)
	}
}
