package devis

import (
	"github.com/bytedance/sonic"

	"github.com/lavjo97/eolia-voice-relay/action"
)

// Apply folds a list of decoded actions into a new document state. It is a
// pure function: the input document is never mutated, and it never fails —
// assistant output is unreliable, so invalid indices, unknown action types
// and malformed params degrade to no-ops instead of crashing the document.
func Apply(doc Devis, actions []action.Action) Devis {
	next := clone(doc)
	for _, act := range actions {
		next = applyOne(next, act)
	}
	return next
}

func applyOne(doc Devis, act action.Action) Devis {
	switch act.Type {
	case action.TypeUpdateClient:
		return applyUpdateClient(doc, act.Params)
	case action.TypeAddLine:
		return applyAddLine(doc, act.Params)
	case action.TypeUpdateLine:
		return applyUpdateLine(doc, act.Params)
	case action.TypeDeleteLine:
		return applyDeleteLine(doc, act.Params)
	case action.TypeApplyDiscount:
		return applyDiscount(doc, act.Params)
	case action.TypeRemoveDiscount:
		doc.RemisePourcent = nil
		doc.RemiseMontant = nil
		return doc
	case action.TypeSetObject:
		if objet, ok := stringParam(act.Params, "objet", "object"); ok {
			doc.Objet = objet
		}
		return doc
	default:
		// Forward compatibility: the assistant may name actions this
		// reducer does not implement yet.
		return doc
	}
}

type updateClientParams struct {
	Nom         *string `json:"nom"`
	Prenom      *string `json:"prenom"`
	Adresse     *string `json:"adresse"`
	Ville       *string `json:"ville"`
	CodePostal  *string `json:"codePostal"`
	Departement *string `json:"departement"`
	Telephone   *string `json:"telephone"`
	Email       *string `json:"email"`
}

func applyUpdateClient(doc Devis, params map[string]any) Devis {
	var p updateClientParams
	if !bindParams(params, &p) {
		return doc
	}

	if p.Nom != nil {
		doc.Client.Nom = *p.Nom
	}
	if p.Prenom != nil {
		doc.Client.Prenom = *p.Prenom
	}
	if p.Adresse != nil {
		doc.Client.Adresse = *p.Adresse
	}
	if p.Ville != nil {
		doc.Client.Ville = *p.Ville
	}
	if p.CodePostal != nil {
		doc.Client.CodePostal = *p.CodePostal
	}
	if p.Departement != nil {
		doc.Client.Departement = *p.Departement
	}
	if p.Telephone != nil {
		doc.Client.Telephone = *p.Telephone
	}
	if p.Email != nil {
		doc.Client.Email = *p.Email
	}
	return doc
}

type addLineParams struct {
	Designation    *string  `json:"designation"`
	Quantite       *float64 `json:"quantite"`
	Unite          *string  `json:"unite"`
	PrixUnitaireHT *float64 `json:"prixUnitaireHT"`
	TauxTVA        *float64 `json:"tauxTVA"`
}

func applyAddLine(doc Devis, params map[string]any) Devis {
	var p addLineParams
	if !bindParams(params, &p) {
		return doc
	}

	// The VAT default follows the client's current department.
	ligne := blankLigne(doc.Client.Departement)
	if p.Designation != nil && *p.Designation != "" {
		ligne.Designation = *p.Designation
	}
	if p.Quantite != nil {
		ligne.Quantite = *p.Quantite
	}
	if p.Unite != nil && *p.Unite != "" {
		ligne.Unite = *p.Unite
	}
	if p.PrixUnitaireHT != nil {
		ligne.PrixUnitaireHT = *p.PrixUnitaireHT
	}
	if p.TauxTVA != nil {
		ligne.TauxTVA = *p.TauxTVA
	}

	doc.Lignes = append(doc.Lignes, ligne)
	return doc
}

func applyUpdateLine(doc Devis, params map[string]any) Devis {
	idx, ok := resolveIndex(doc, params)
	if !ok {
		return doc
	}
	field, ok := stringParam(params, "field", "champ")
	if !ok {
		return doc
	}
	value := params["value"]
	if value == nil {
		value = params["valeur"]
	}

	ligne := doc.Lignes[idx]
	switch field {
	case "designation":
		if s, ok := value.(string); ok {
			ligne.Designation = s
		}
	case "quantite":
		if f, ok := numberValue(value); ok {
			ligne.Quantite = f
		}
	case "unite":
		if s, ok := value.(string); ok {
			ligne.Unite = s
		}
	case "prixUnitaireHT":
		if f, ok := numberValue(value); ok {
			ligne.PrixUnitaireHT = f
		}
	case "tauxTVA":
		if f, ok := numberValue(value); ok {
			ligne.TauxTVA = f
		}
	}
	doc.Lignes[idx] = ligne
	return doc
}

func applyDeleteLine(doc Devis, params map[string]any) Devis {
	idx, ok := resolveIndex(doc, params)
	if !ok {
		return doc
	}

	if len(doc.Lignes) == 1 {
		// Never reduce to zero lines: the sole remaining line is
		// replaced with a blank one instead.
		doc.Lignes = []Ligne{blankLigne(doc.Client.Departement)}
		return doc
	}

	lignes := make([]Ligne, 0, len(doc.Lignes)-1)
	lignes = append(lignes, doc.Lignes[:idx]...)
	lignes = append(lignes, doc.Lignes[idx+1:]...)
	doc.Lignes = lignes
	return doc
}

// applyDiscount accepts both observed param shapes: direct keys
// ({"percent": 10} / {"amount": 150}) and the kind/value pair
// ({"type": "percent", "value": 10}). Percent and amount are mutually
// exclusive: setting one clears the other.
func applyDiscount(doc Devis, params map[string]any) Devis {
	if value, ok := firstNumber(params, "percent", "pourcent", "pourcentage"); ok {
		doc.RemisePourcent = &value
		doc.RemiseMontant = nil
		return doc
	}
	if value, ok := firstNumber(params, "amount", "montant"); ok {
		doc.RemiseMontant = &value
		doc.RemisePourcent = nil
		return doc
	}

	kind, ok := stringParam(params, "type", "kind")
	if !ok {
		return doc
	}
	value, ok := numberValue(params["value"])
	if !ok {
		if value, ok = numberValue(params["valeur"]); !ok {
			return doc
		}
	}

	switch kind {
	case "percent", "pourcent", "pourcentage":
		doc.RemisePourcent = &value
		doc.RemiseMontant = nil
	case "amount", "montant":
		doc.RemiseMontant = &value
		doc.RemisePourcent = nil
	}
	return doc
}

func firstNumber(params map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := numberValue(params[k]); ok {
			return f, true
		}
	}
	return 0, false
}

// resolveIndex extracts the line index from params, resolving the -1
// sentinel ("the last line") to a concrete index. The sentinel is never
// stored. Returns false for missing or out-of-range indices.
func resolveIndex(doc Devis, params map[string]any) (int, bool) {
	raw, ok := numberValue(params["index"])
	if !ok {
		return 0, false
	}
	idx := int(raw)
	if idx == -1 {
		idx = len(doc.Lignes) - 1
	}
	if idx < 0 || idx >= len(doc.Lignes) {
		return 0, false
	}
	return idx, true
}

func clone(doc Devis) Devis {
	lignes := make([]Ligne, len(doc.Lignes))
	copy(lignes, doc.Lignes)
	doc.Lignes = lignes

	if doc.RemisePourcent != nil {
		v := *doc.RemisePourcent
		doc.RemisePourcent = &v
	}
	if doc.RemiseMontant != nil {
		v := *doc.RemiseMontant
		doc.RemiseMontant = &v
	}
	return doc
}

// bindParams decodes a raw params map into a typed param struct. Missing
// params bind to zero values (every field defaults); a bind failure means
// the assistant sent structurally wrong params and the caller treats that
// as a no-op.
func bindParams(params map[string]any, out any) bool {
	if params == nil {
		return true
	}
	data, err := sonic.Marshal(params)
	if err != nil {
		return false
	}
	return sonic.Unmarshal(data, out) == nil
}

func stringParam(params map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := params[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
