package structure

import "strings"

const docTypeDefault = "document_general"

// docTypeRule scores one document type. Keyword hits are weighted, heading
// hits add headingBonus per hit, and wantsTables adds tableBonus when the
// document contains at least one table.
type docTypeRule struct {
	label        string
	keywords     map[string]int
	headingWords []string
	wantsTables  bool
}

const (
	headingBonus = 4
	tableBonus   = 3
)

// registration order is the tie-break: at equal score the first registered
// type wins.
var docTypeRules = []docTypeRule{
	{
		label: "contrat",
		keywords: map[string]int{
			"contrat": 5, "parties": 3, "soussigné": 3, "engage": 2,
			"obligations": 2, "résiliation": 3, "convention": 4, "avenant": 3,
		},
		headingWords: []string{"article"},
	},
	{
		label: "facture",
		keywords: map[string]int{
			"facture": 5, "montant": 2, "tva": 3, "ttc": 3, "ht": 2,
			"règlement": 2, "échéance": 2, "doit": 1,
		},
		wantsTables: true,
	},
	{
		label: "devis",
		keywords: map[string]int{
			"devis": 5, "estimation": 3, "proposition": 2, "validité": 2,
			"offre": 2, "quantité": 1,
		},
		wantsTables: true,
	},
	{
		label: "lettre",
		keywords: map[string]int{
			"madame": 2, "monsieur": 2, "cordialement": 4, "salutations": 4,
			"objet": 3, "courrier": 3,
		},
	},
	{
		label: "rapport",
		keywords: map[string]int{
			"rapport": 5, "analyse": 2, "conclusion": 3, "synthèse": 3,
			"résultats": 2, "recommandations": 3,
		},
	},
	{
		label: "proces_verbal",
		keywords: map[string]int{
			"procès-verbal": 5, "séance": 3, "assemblée": 3, "délibération": 3,
			"ordre du jour": 4, "présents": 2, "quorum": 3,
		},
	},
	{
		label: "formulaire",
		keywords: map[string]int{
			"formulaire": 5, "remplir": 3, "cocher": 3, "case": 2,
			"champ": 2, "demande": 1,
		},
	},
	{
		label: "attestation",
		keywords: map[string]int{
			"attestation": 5, "atteste": 5, "certifie": 4, "certificat": 4,
			"foi": 2, "justificatif": 3,
		},
	},
}

func classifyDocumentType(text string, headings []string, hasTables bool) string {
	low := strings.ToLower(text)
	headingLow := strings.ToLower(strings.Join(headings, "\n"))

	best, bestScore := docTypeDefault, 0
	for _, rule := range docTypeRules {
		score := 0
		for kw, w := range rule.keywords {
			score += strings.Count(low, kw) * w
		}
		for _, hw := range rule.headingWords {
			score += strings.Count(headingLow, hw) * headingBonus
		}
		if rule.wantsTables && hasTables {
			score += tableBonus
		}
		// strictly greater keeps the first-registered winner on ties
		if score > bestScore {
			best, bestScore = rule.label, score
		}
	}
	if bestScore < 5 {
		return docTypeDefault
	}
	return best
}
