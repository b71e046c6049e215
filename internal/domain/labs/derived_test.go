package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/domain/patient"
)

func renalPanel() []TestItem {
	return []TestItem{
		{ID: "t1", Name: TestBUN, Category: CategoryRenal},
		{ID: "t2", Name: TestCreatinine, Category: CategoryRenal},
		{ID: "t3", Name: TestBUNCrRatio, Category: CategoryRenal},
	}
}

func TestBUNCreatinineRatio(t *testing.T) {
	s := Subject{Gender: patient.GenderMale, Age: 40}

	items, err := SetValue(renalPanel(), "t1", "40", s)
	require.NoError(t, err)
	assert.Empty(t, items[2].Value, "ratio needs both inputs")

	items, err = SetValue(items, "t2", "2.0", s)
	require.NoError(t, err)
	assert.Equal(t, "20.0", items[2].Value)
	assert.False(t, items[2].IsAbnormal, "upper bound is inclusive")
	assert.True(t, items[0].IsAbnormal, "BUN 40 is above 20")
	assert.True(t, items[1].IsAbnormal, "SCr 2.0 is above 1.3")

	items, err = SetValue(items, "t2", "1.5", s)
	require.NoError(t, err)
	assert.Equal(t, "26.7", items[2].Value)
	assert.True(t, items[2].IsAbnormal)
}

func TestBUNCreatinineRatioWithUnits(t *testing.T) {
	s := Subject{Gender: patient.GenderMale, Age: 40}

	items, err := SetValue(renalPanel(), "t1", "40 mg/dL", s)
	require.NoError(t, err)
	items, err = SetValue(items, "t2", "2.0 mg/dL", s)
	require.NoError(t, err)

	assert.Equal(t, "20.0", items[2].Value)
	assert.True(t, items[0].IsAbnormal)
	assert.False(t, items[2].IsAbnormal)
}

func TestRecomputeDerivedGuards(t *testing.T) {
	s := Subject{Gender: patient.GenderFemale, Age: 40}

	tests := []struct {
		name string
		bun  string
		scr  string
	}{
		{"zero divisor", "40", "0"},
		{"non-numeric input", "40", "hemolysed"},
		{"exempt input", "40", ExemptValue},
		{"blank input", "", "1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := renalPanel()
			items[0].Value = tt.bun
			items[1].Value = tt.scr
			items[2].Value = "15.0"

			out := RecomputeDerived(items, s)
			assert.Equal(t, "15.0", out[2].Value)
		})
	}
}

func TestRecomputeDerivedIsPure(t *testing.T) {
	items := renalPanel()
	items[0].Value = "30"
	items[1].Value = "1.0"

	out := RecomputeDerived(items, Subject{})

	assert.Equal(t, "30.0", out[2].Value)
	assert.Empty(t, items[2].Value)
}

func TestRecomputeDerivedPreservesManualFlag(t *testing.T) {
	items := renalPanel()
	items[0].Value = "30"
	items[1].Value = "2.0"
	items[2].Value = "15.0"
	items[2].IsAbnormal = true

	out := RecomputeDerived(items, Subject{})
	assert.True(t, out[2].IsAbnormal)
}

func TestRecomputeDerivedSkipsExemptTarget(t *testing.T) {
	items := renalPanel()
	items[0].Value = "30"
	items[1].Value = "1.0"
	items[2].IsExempt = true
	items[2].ExemptReason = "lab error"
	items[2].Value = ExemptValue

	out := RecomputeDerived(items, Subject{})
	assert.Equal(t, ExemptValue, out[2].Value)
}
