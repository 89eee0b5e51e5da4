package contact

import (
	"testing"
	"time"
)

func ts(day, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
}

func sample() *Contact {
	ref := SourceRef{ID: "42", Database: "lpr"}
	end := ts(2, 10)
	return &Contact{
		Ref:            ref,
		PatientID:      "p1",
		HospitalCode:   "1301",
		DepartmentCode: "K",
		Start:          ts(1, 8),
		End:            &end,
		Diagnoses:      []Diagnosis{{Code: "DA01", Type: "A"}},
		Procedures:     []Procedure{{Code: "KNFB", Type: "P", Performed: ts(1, 12)}},
		MergedRefs:     []SourceRef{ref},
	}
}

func TestValueKey_IgnoresSourceRef(t *testing.T) {
	a := sample()
	b := sample()
	b.Ref = SourceRef{ID: "99", Database: "minipas"}
	b.MergedRefs = []SourceRef{b.Ref}

	if a.ValueKey() != b.ValueKey() {
		t.Error("rows differing only by source ref must share a value key")
	}
}

func TestValueKey_DistinguishesPeriodAndPlace(t *testing.T) {
	base := sample()

	tests := []struct {
		name   string
		mutate func(*Contact)
	}{
		{"different hospital", func(c *Contact) { c.HospitalCode = "2402" }},
		{"different department", func(c *Contact) { c.DepartmentCode = "M" }},
		{"different start", func(c *Contact) { c.Start = ts(1, 9) }},
		{"different end", func(c *Contact) { end := ts(2, 11); c.End = &end }},
		{"missing end", func(c *Contact) { c.End = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := sample()
			tt.mutate(other)
			if base.ValueKey() == other.ValueKey() {
				t.Error("value keys must differ")
			}
		})
	}
}

func TestAbsorb_UnionsByValue(t *testing.T) {
	a := sample()
	b := sample()
	b.Ref = SourceRef{ID: "99", Database: "lpr"}
	b.MergedRefs = []SourceRef{b.Ref}
	b.Diagnoses = append(b.Diagnoses, Diagnosis{Code: "DB02", Type: "B"})

	a.Absorb(b)

	if len(a.MergedRefs) != 2 {
		t.Errorf("MergedRefs = %v, want both rows", a.MergedRefs)
	}
	// The shared diagnosis must not double up.
	if len(a.Diagnoses) != 2 {
		t.Errorf("Diagnoses = %v, want value-deduped union of 2", a.Diagnoses)
	}
	if len(a.Procedures) != 1 {
		t.Errorf("Procedures = %v, want the shared procedure once", a.Procedures)
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := sample()
	cp := orig.Clone()

	*cp.End = ts(9, 9)
	cp.Diagnoses[0].Code = "DX99"
	cp.MergedRefs[0].ID = "changed"

	if orig.End.Equal(ts(9, 9)) {
		t.Error("clone shares the End pointer")
	}
	if orig.Diagnoses[0].Code == "DX99" {
		t.Error("clone shares the Diagnoses slice")
	}
	if orig.MergedRefs[0].ID == "changed" {
		t.Error("clone shares the MergedRefs slice")
	}
}

func TestSamePeriod_MissingEnds(t *testing.T) {
	a := sample()
	b := sample()
	a.End = nil

	if a.SamePeriod(b) {
		t.Error("nil end vs recorded end must not match")
	}
	b.End = nil
	if !a.SamePeriod(b) {
		t.Error("two missing ends on the same start must match")
	}
}

func TestSourceRefString(t *testing.T) {
	if got := (SourceRef{ID: "42", Database: "lpr"}).String(); got != "42@lpr" {
		t.Errorf("String() = %q, want 42@lpr", got)
	}
	if got := (SourceRef{ID: "42"}).String(); got != "42" {
		t.Errorf("String() = %q, want bare id without database", got)
	}
}
