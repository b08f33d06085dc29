package devis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lavjo97/eolia-voice-relay/action"
)

func oneLineDoc() Devis {
	return Devis{
		Lignes: []Ligne{{Designation: "X", Quantite: 1, Unite: "u", PrixUnitaireHT: 100, TauxTVA: 20}},
	}
}

func TestApplyUpdateClientMergesPresentFields(t *testing.T) {
	doc := New()
	doc.Client.Nom = "Durand"
	doc.Client.Ville = "Nantes"

	next := Apply(doc, []action.Action{{
		Type:   action.TypeUpdateClient,
		Params: map[string]any{"ville": "Fort-de-France", "departement": "972"},
	}})

	require.Equal(t, "Durand", next.Client.Nom, "absent fields stay untouched")
	require.Equal(t, "Fort-de-France", next.Client.Ville)
	require.Equal(t, "972", next.Client.Departement)
	require.Equal(t, "Nantes", doc.Client.Ville, "input document is not mutated")
}

func TestApplyAddLineDefaults(t *testing.T) {
	doc := New()
	doc.Client.Departement = "974"

	next := Apply(doc, []action.Action{{Type: action.TypeAddLine}})

	require.Len(t, next.Lignes, 2)
	added := next.Lignes[1]
	require.Equal(t, "Prestation", added.Designation)
	require.Equal(t, float64(1), added.Quantite)
	require.Equal(t, "u", added.Unite)
	require.Equal(t, float64(0), added.PrixUnitaireHT)
	require.Equal(t, 8.5, added.TauxTVA, "VAT defaults from the client department")
}

func TestApplyAddLineExplicitFields(t *testing.T) {
	next := Apply(New(), []action.Action{{
		Type: action.TypeAddLine,
		Params: map[string]any{
			"designation":    "Pose carrelage",
			"quantite":       float64(12),
			"unite":          "m2",
			"prixUnitaireHT": float64(45),
		},
	}})

	require.Len(t, next.Lignes, 2)
	added := next.Lignes[1]
	require.Equal(t, "Pose carrelage", added.Designation)
	require.Equal(t, float64(12), added.Quantite)
	require.Equal(t, "m2", added.Unite)
	require.Equal(t, float64(45), added.PrixUnitaireHT)
	require.Equal(t, float64(20), added.TauxTVA)
}

func TestApplyUpdateLineLastIndexSentinel(t *testing.T) {
	doc := oneLineDoc()

	next := Apply(doc, []action.Action{{
		Type:   action.TypeUpdateLine,
		Params: map[string]any{"index": float64(-1), "field": "quantite", "value": float64(3)},
	}})

	require.Equal(t, float64(3), next.Lignes[0].Quantite)
	require.Equal(t, "X", next.Lignes[0].Designation, "other fields unchanged")
	require.Equal(t, float64(100), next.Lignes[0].PrixUnitaireHT)
}

func TestApplyUpdateLineSentinelAlwaysTargetsLast(t *testing.T) {
	doc := New()
	doc.Lignes = []Ligne{{Designation: "a"}, {Designation: "b"}, {Designation: "c"}}

	next := Apply(doc, []action.Action{{
		Type:   action.TypeUpdateLine,
		Params: map[string]any{"index": float64(-1), "field": "designation", "value": "last"},
	}})

	require.Equal(t, "a", next.Lignes[0].Designation)
	require.Equal(t, "b", next.Lignes[1].Designation)
	require.Equal(t, "last", next.Lignes[2].Designation)
}

func TestApplyUpdateLineOutOfRangeIsNoop(t *testing.T) {
	doc := oneLineDoc()

	next := Apply(doc, []action.Action{{
		Type:   action.TypeUpdateLine,
		Params: map[string]any{"index": float64(5), "field": "quantite", "value": float64(3)},
	}})

	require.Equal(t, doc, next)
}

func TestApplyDeleteLineNeverEmpties(t *testing.T) {
	doc := oneLineDoc()

	// Deleting the only line leaves one blank line, repeatedly.
	next := doc
	for i := 0; i < 4; i++ {
		next = Apply(next, []action.Action{{
			Type:   action.TypeDeleteLine,
			Params: map[string]any{"index": float64(-1)},
		}})
		require.Len(t, next.Lignes, 1)
	}
	require.Equal(t, "Prestation", next.Lignes[0].Designation)
	require.Equal(t, float64(0), next.Lignes[0].PrixUnitaireHT)
}

func TestApplyDeleteLineMiddle(t *testing.T) {
	doc := New()
	doc.Lignes = []Ligne{{Designation: "a"}, {Designation: "b"}, {Designation: "c"}}

	next := Apply(doc, []action.Action{{
		Type:   action.TypeDeleteLine,
		Params: map[string]any{"index": float64(1)},
	}})

	require.Len(t, next.Lignes, 2)
	require.Equal(t, "a", next.Lignes[0].Designation)
	require.Equal(t, "c", next.Lignes[1].Designation)
}

func TestApplyDiscountExclusivity(t *testing.T) {
	doc := New()

	next := Apply(doc, []action.Action{{
		Type:   action.TypeApplyDiscount,
		Params: map[string]any{"type": "percent", "value": float64(10)},
	}})
	require.NotNil(t, next.RemisePourcent)
	require.Equal(t, float64(10), *next.RemisePourcent)
	require.Nil(t, next.RemiseMontant)

	next = Apply(next, []action.Action{{
		Type:   action.TypeApplyDiscount,
		Params: map[string]any{"type": "amount", "value": float64(50)},
	}})
	require.Nil(t, next.RemisePourcent)
	require.NotNil(t, next.RemiseMontant)
	require.Equal(t, float64(50), *next.RemiseMontant)

	next = Apply(next, []action.Action{{Type: action.TypeRemoveDiscount}})
	require.Nil(t, next.RemisePourcent)
	require.Nil(t, next.RemiseMontant)

	// Direct-key shape, as emitted by the system prompt.
	next = Apply(next, []action.Action{{
		Type:   action.TypeApplyDiscount,
		Params: map[string]any{"percent": float64(5)},
	}})
	require.NotNil(t, next.RemisePourcent)
	require.Equal(t, float64(5), *next.RemisePourcent)

	next = Apply(next, []action.Action{{
		Type:   action.TypeApplyDiscount,
		Params: map[string]any{"amount": float64(150)},
	}})
	require.Nil(t, next.RemisePourcent)
	require.Equal(t, float64(150), *next.RemiseMontant)
}

func TestApplySetObject(t *testing.T) {
	next := Apply(New(), []action.Action{{
		Type:   action.TypeSetObject,
		Params: map[string]any{"objet": "Installation"},
	}})
	require.Equal(t, "Installation", next.Objet)
}

func TestApplyUnknownActionIgnored(t *testing.T) {
	doc := oneLineDoc()
	next := Apply(doc, []action.Action{
		{Type: action.Type("reticulate_splines"), Params: map[string]any{"x": float64(1)}},
		{Type: action.TypeUnknown},
	})
	require.Equal(t, doc, next)
}

func TestApplyEndToEndScenario(t *testing.T) {
	// A decoded fenced response sets the object, then updates the last line.
	doc := oneLineDoc()

	next := Apply(doc, []action.Action{
		{Type: action.TypeSetObject, Params: map[string]any{"objet": "Installation"}},
		{Type: action.TypeUpdateLine, Params: map[string]any{"index": float64(-1), "field": "quantite", "value": float64(3)}},
	})

	require.Equal(t, "Installation", next.Objet)
	require.Equal(t, float64(3), next.Lignes[0].Quantite)
	require.Equal(t, "X", next.Lignes[0].Designation)
}
