// Package devis holds the in-memory model of the quote being built by voice
// and the reducer that applies decoded assistant actions to it.
package devis

// Client is the customer block of a quote.
type Client struct {
	Nom         string `json:"nom,omitempty"`
	Prenom      string `json:"prenom,omitempty"`
	Adresse     string `json:"adresse,omitempty"`
	Ville       string `json:"ville,omitempty"`
	CodePostal  string `json:"codePostal,omitempty"`
	Departement string `json:"departement,omitempty"`
	Telephone   string `json:"telephone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Ligne is one quoted work item.
type Ligne struct {
	Designation    string  `json:"designation"`
	Quantite       float64 `json:"quantite"`
	Unite          string  `json:"unite"`
	PrixUnitaireHT float64 `json:"prixUnitaireHT"`
	TauxTVA        float64 `json:"tauxTVA"`
}

// Devis is the quote document. A valid document always carries at least one
// line; the reducer maintains that invariant.
type Devis struct {
	Objet          string   `json:"objet,omitempty"`
	Client         Client   `json:"client"`
	Lignes         []Ligne  `json:"lignes"`
	RemisePourcent *float64 `json:"remisePourcent,omitempty"`
	RemiseMontant  *float64 `json:"remiseMontant,omitempty"`
}

const (
	defaultDesignation = "Prestation"
	defaultUnite       = "u"
)

// New returns an empty quote with a single blank line.
func New() Devis {
	return Devis{Lignes: []Ligne{blankLigne("")}}
}

func blankLigne(departement string) Ligne {
	return Ligne{
		Designation: defaultDesignation,
		Quantite:    1,
		Unite:       defaultUnite,
		TauxTVA:     VATRateForDepartment(departement, VATNormal),
	}
}

// TotalHT sums the lines before tax and discount.
func (d Devis) TotalHT() float64 {
	var total float64
	for _, l := range d.Lignes {
		total += l.Quantite * l.PrixUnitaireHT
	}
	return total
}

// TotalTTC sums the lines with VAT, after applying the discount to the
// pre-tax total.
func (d Devis) TotalTTC() float64 {
	discount := 0.0
	if d.RemisePourcent != nil {
		discount = d.TotalHT() * *d.RemisePourcent / 100
	} else if d.RemiseMontant != nil {
		discount = *d.RemiseMontant
	}

	ht := d.TotalHT()
	if ht <= 0 {
		return 0
	}
	ratio := (ht - discount) / ht

	var total float64
	for _, l := range d.Lignes {
		total += l.Quantite * l.PrixUnitaireHT * ratio * (1 + l.TauxTVA/100)
	}
	return total
}
