package devis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVATRateForDepartment(t *testing.T) {
	tests := []struct {
		name     string
		dept     string
		category VATCategory
		want     float64
	}{
		{name: "metropole normal", dept: "44", category: VATNormal, want: 20},
		{name: "metropole intermediaire", dept: "75", category: VATIntermediaire, want: 10},
		{name: "metropole reduite", dept: "13", category: VATReduite, want: 5.5},
		{name: "empty department defaults to metropole", dept: "", category: VATNormal, want: 20},
		{name: "guadeloupe normal", dept: "971", category: VATNormal, want: 8.5},
		{name: "martinique reduite", dept: "972", category: VATReduite, want: 2.1},
		{name: "reunion intermediaire", dept: "974", category: VATIntermediaire, want: 2.1},
		{name: "guyane exempt", dept: "973", category: VATNormal, want: 0},
		{name: "mayotte exempt", dept: "976", category: VATReduite, want: 0},
		{name: "whitespace tolerated", dept: " 974 ", category: VATNormal, want: 8.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, VATRateForDepartment(tc.dept, tc.category))
		})
	}
}

func TestTotals(t *testing.T) {
	doc := Devis{
		Lignes: []Ligne{
			{Quantite: 2, PrixUnitaireHT: 100, TauxTVA: 20},
			{Quantite: 1, PrixUnitaireHT: 50, TauxTVA: 10},
		},
	}

	require.Equal(t, float64(250), doc.TotalHT())
	require.InDelta(t, 2*100*1.2+50*1.1, doc.TotalTTC(), 0.001)

	ten := 10.0
	doc.RemisePourcent = &ten
	require.InDelta(t, (2*100*1.2+50*1.1)*0.9, doc.TotalTTC(), 0.001)
}
