package devis

import "strings"

// VATCategory selects which French VAT bracket applies to a line.
type VATCategory string

const (
	VATNormal        VATCategory = "normal"        // 20% métropole
	VATIntermediaire VATCategory = "intermediaire" // 10% renovation works
	VATReduite       VATCategory = "reduite"       // 5.5% energy renovation
)

// VATRateForDepartment returns the applicable VAT rate in percent for a
// French department code. Overseas departments have their own regime:
// Guadeloupe (971), Martinique (972) and La Réunion (974) use 8.5%/2.1%,
// while Guyane (973) and Mayotte (976) are outside the VAT scope entirely.
func VATRateForDepartment(departement string, category VATCategory) float64 {
	dept := strings.TrimSpace(departement)

	switch dept {
	case "973", "976":
		return 0
	case "971", "972", "974":
		switch category {
		case VATReduite, VATIntermediaire:
			return 2.1
		default:
			return 8.5
		}
	}

	switch category {
	case VATReduite:
		return 5.5
	case VATIntermediaire:
		return 10
	default:
		return 20
	}
}
