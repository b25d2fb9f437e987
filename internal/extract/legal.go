package extract

import (
	"regexp"
	"strings"

	"github.com/docvars/extracteur/internal/recognize"
)

// LegalDocumentType is the fixed legal-document taxonomy.
type LegalDocumentType string

const (
	LegalContratTravail    LegalDocumentType = "contrat_travail"
	LegalContratBail       LegalDocumentType = "contrat_bail"
	LegalContratVente      LegalDocumentType = "contrat_vente"
	LegalContratPrestation LegalDocumentType = "contrat_prestation"
	LegalProcuration       LegalDocumentType = "procuration"
	LegalStatuts           LegalDocumentType = "statuts"
	LegalJugement          LegalDocumentType = "jugement"
	LegalMiseEnDemeure     LegalDocumentType = "mise_en_demeure"
	LegalAttestation       LegalDocumentType = "attestation"
	LegalGeneric           LegalDocumentType = "document_juridique"
)

// classification keywords, in registration order for the tie-break.
var legalTypeKeywords = []struct {
	docType  LegalDocumentType
	keywords map[string]int
}{
	{LegalContratTravail, map[string]int{"contrat de travail": 5, "salarié": 3, "employeur": 3, "période d'essai": 3, "rémunération": 2, "embauche": 3}},
	{LegalContratBail, map[string]int{"bail": 5, "location": 3, "bailleur": 4, "locataire": 4, "loyer": 3, "dépôt de garantie": 3}},
	{LegalContratVente, map[string]int{"contrat de vente": 5, "vendeur": 4, "acquéreur": 4, "acheteur": 3, "prix de vente": 3}},
	{LegalContratPrestation, map[string]int{"prestation de services": 5, "prestataire": 4, "prestations": 2, "cahier des charges": 3}},
	{LegalProcuration, map[string]int{"procuration": 5, "mandant": 4, "mandataire": 4, "pouvoir": 2, "donne pouvoir": 5}},
	{LegalStatuts, map[string]int{"statuts": 5, "capital social": 4, "associés": 3, "siège social": 2, "assemblée générale": 2}},
	{LegalJugement, map[string]int{"jugement": 5, "tribunal": 4, "condamne": 4, "audience": 3, "greffe": 3}},
	{LegalMiseEnDemeure, map[string]int{"mise en demeure": 5, "sommation": 4, "défaut de paiement": 3, "délai de": 1}},
	{LegalAttestation, map[string]int{"attestation": 5, "atteste": 5, "certifie": 4, "témoignage": 3}},
}

// per-type field templates, pre-seeded with null placeholders so the caller
// sees the expected shape even for unmatched fields.
var legalTemplates = map[LegalDocumentType][]string{
	LegalContratTravail:    {"poste", "salaire", "duree_travail", "date_debut", "periode_essai", "convention_collective"},
	LegalContratBail:       {"adresse_bien", "loyer", "charges", "depot_garantie", "duree_bail", "date_effet"},
	LegalContratVente:      {"bien_vendu", "prix_vente", "date_livraison", "garantie"},
	LegalContratPrestation: {"prestations", "montant", "delai_execution", "penalites"},
	LegalProcuration:       {"mandant", "mandataire", "etendue_pouvoir", "duree_validite"},
	LegalStatuts:           {"denomination", "forme_juridique", "capital_social", "siege_social", "objet_social"},
	LegalJugement:          {"juridiction", "numero_affaire", "date_audience", "dispositif"},
	LegalMiseEnDemeure:     {"montant_reclame", "delai_paiement", "date_limite"},
	LegalAttestation:       {"objet_attestation", "beneficiaire", "date_fait"},
	LegalGeneric:           {"objet"},
}

var (
	reLegalSigned       = regexp.MustCompile(`(?i)\bfait\s+à\s+([\p{Lu}][\p{L}'\- ]{1,30})\s*,?\s*le\s+(\d{2}/\d{2}/\d{4})`)
	reLegalEffective    = regexp.MustCompile(`(?i)(?:à compter du|prendra effet le|prend effet le|avec effet au)\s+(\d{2}/\d{2}/\d{4})`)
	reLegalExpiration   = regexp.MustCompile(`(?i)\b(?:jusqu'au|expire le|prend fin le|échéance au)\s+(\d{2}/\d{2}/\d{4})`)
	reLegalBetween      = regexp.MustCompile(`(?is)\bentre\s+(?:les\s+soussignés?\s*[,:]?\s*)?(.{2,200}?)\s+et\s+(.{2,200}?)(?:[,;.]|\bil a été\b|\bil est\b|\n\n)`)
	reLegalAmount       = regexp.MustCompile(`(?i)(\d+(?:[.,]\d{1,2})?)\s*(?:€|euros?|eur|fcfa|dh|dhs|dt|da)`)
	reLegalObligation   = regexp.MustCompile(`(?i)s'engage(?:nt)?\s+à\s+([^.;\n]{5,160})`)
	reLegalJurisdiction = regexp.MustCompile(`(?i)\b(tribunal(?:\s+de\s+commerce|\s+judiciaire|\s+administratif)?\s+d[e'’]\s*[\p{Lu}][\p{L}'\- ]{1,30})`)
)

// party roles looked up around a recognized name.
var legalRoles = []struct {
	role     string
	keywords []string
}{
	{"employeur", []string{"employeur", "la société employeur"}},
	{"salarié", []string{"salarié", "salariée", "l'employé"}},
	{"bailleur", []string{"bailleur", "la bailleresse"}},
	{"locataire", []string{"locataire", "preneur"}},
	{"vendeur", []string{"vendeur", "la venderesse"}},
	{"acquéreur", []string{"acquéreur", "acheteur"}},
	{"prestataire", []string{"prestataire"}},
	{"client", []string{"le client", "donneur d'ordre"}},
	{"mandant", []string{"mandant"}},
	{"mandataire", []string{"mandataire"}},
	{"signataire", []string{"soussigné", "soussignée"}},
}

// LegalDocsExtractor classifies the document into the legal taxonomy,
// instantiates that type's field template and fills what it can; parties
// with roles and the important dates live in distinct sub-maps.
type LegalDocsExtractor struct{}

func NewLegalDocsExtractor() *LegalDocsExtractor {
	return &LegalDocsExtractor{}
}

func (e *LegalDocsExtractor) Kind() Kind { return KindLegal }

func (e *LegalDocsExtractor) Extract(doc *Document) (FieldGroup, error) {
	text := doc.Text
	low := strings.ToLower(text)

	docType := classifyLegalType(low)

	fields := map[string]any{
		"doc_type": string(docType),
	}

	// type template: null placeholders first, then the fillers below
	details := map[string]any{}
	for _, f := range legalTemplates[docType] {
		details[f] = nil
	}
	e.fillTypeDetails(docType, text, details)
	fields["details"] = details

	if parties := e.extractParties(doc); len(parties) > 0 {
		fields["parties"] = parties
	}

	dates := map[string]any{}
	if m := reLegalSigned.FindStringSubmatch(text); m != nil {
		fields["lieu_signature"] = strings.TrimSpace(m[1])
		dates["signature"] = m[2]
	}
	if v := firstGroup(reLegalEffective, text); v != "" {
		dates["effet"] = v
	}
	if v := firstGroup(reLegalExpiration, text); v != "" {
		dates["expiration"] = v
	}
	// NER DATE entities only complete a still-empty signature slot
	if _, ok := dates["signature"]; !ok {
		fillIfEmpty(dates, "signature", firstEntity(doc.Entities, "DATE"))
	}
	if len(dates) > 0 {
		fields["dates"] = dates
	}

	if v := firstGroup(reLegalAmount, text); v != "" {
		fields["montant"] = strings.ReplaceAll(v, ",", ".")
	}
	if obligations := allGroups(reLegalObligation, text); len(obligations) > 0 {
		fields["obligations"] = obligations
	}

	return FieldGroup{Name: KindLegal, Fields: fields}, nil
}

func classifyLegalType(low string) LegalDocumentType {
	best, bestScore := LegalGeneric, 0
	for _, entry := range legalTypeKeywords {
		score := 0
		for kw, w := range entry.keywords {
			score += strings.Count(low, kw) * w
		}
		if score > bestScore {
			best, bestScore = entry.docType, score
		}
	}
	if bestScore < 5 {
		return LegalGeneric
	}
	return best
}

func (e *LegalDocsExtractor) fillTypeDetails(docType LegalDocumentType, text string, details map[string]any) {
	set := func(key string, re *regexp.Regexp) {
		if v := firstGroup(re, text); v != "" {
			details[key] = v
		}
	}
	switch docType {
	case LegalContratTravail:
		set("poste", regexp.MustCompile(`(?i)\ben qualité d[e'’]\s*([\p{L}'\- ]{3,50})`))
		set("salaire", regexp.MustCompile(`(?i)\b(?:salaire|rémunération)\s+(?:mensuel(?:le)?\s+)?(?:brut(?:e)?\s+)?de\s+(\d+(?:[.,]\d{1,2})?)`))
		set("duree_travail", regexp.MustCompile(`(?i)\b(\d{1,2}(?:[.,]\d{1,2})?)\s*heures?\s+(?:par\s+semaine|hebdomadaires?)`))
		set("date_debut", regexp.MustCompile(`(?i)\b(?:prendra ses fonctions le|embauché(?:e)? à compter du)\s+(\d{2}/\d{2}/\d{4})`))
		set("periode_essai", regexp.MustCompile(`(?i)\bpériode d'essai\s+(?:de\s+)?(\d{1,2}\s+mois)`))
		set("convention_collective", regexp.MustCompile(`(?i)\bconvention collective\s+([^\n.;]{3,80})`))
	case LegalContratBail:
		set("loyer", regexp.MustCompile(`(?i)\bloyer\s+(?:mensuel\s+)?de\s+(\d+(?:[.,]\d{1,2})?)`))
		set("charges", regexp.MustCompile(`(?i)\bcharges\s+(?:de\s+)?(\d+(?:[.,]\d{1,2})?)`))
		set("depot_garantie", regexp.MustCompile(`(?i)\bdépôt de garantie\s+(?:de\s+)?(\d+(?:[.,]\d{1,2})?)`))
		set("duree_bail", regexp.MustCompile(`(?i)\bdurée\s+de\s+(\d{1,2}\s+(?:ans?|mois))`))
	case LegalContratVente:
		set("prix_vente", regexp.MustCompile(`(?i)\bprix\s+(?:de vente\s+)?(?:de\s+)?(\d+(?:[.,]\d{1,2})?)`))
		set("bien_vendu", regexp.MustCompile(`(?i)\bvend\s+(?:à[^,]{0,60},?\s*)?([^\n.;]{5,100})`))
	case LegalProcuration:
		set("mandant", regexp.MustCompile(`(?i)\bmandant\s*:?\s*([\p{Lu}][\p{L}'\- ]{2,50})`))
		set("mandataire", regexp.MustCompile(`(?i)\bmandataire\s*:?\s*([\p{Lu}][\p{L}'\- ]{2,50})`))
		set("etendue_pouvoir", regexp.MustCompile(`(?i)\bdonne pouvoir\s+(?:à[^,]{0,60},?\s*)?(?:de|pour|aux fins de)\s+([^\n.;]{5,120})`))
	case LegalStatuts:
		set("denomination", regexp.MustCompile(`(?i)\bdénomination\s+(?:sociale\s+)?:?\s*([^\n.;]{2,60})`))
		set("forme_juridique", regexp.MustCompile(`(?i)\b(société à responsabilité limitée|société anonyme|société par actions simplifiée|sarl|sas|sa|sasu|eurl)\b`))
		set("capital_social", regexp.MustCompile(`(?i)\bcapital\s+(?:social\s+)?de\s+(\d+(?:[.,]\d{1,2})?)`))
		set("siege_social", regexp.MustCompile(`(?i)\bsiège social\s*:?\s*(?:est fixé à\s+)?([^\n.;]{5,100})`))
		set("objet_social", regexp.MustCompile(`(?i)\bobjet\s+(?:social\s+)?:?\s*([^\n.;]{5,120})`))
	case LegalJugement:
		set("juridiction", reLegalJurisdiction)
		set("numero_affaire", regexp.MustCompile(`(?i)\b(?:rg|affaire)\s*n°\s*:?\s*([0-9/\-]{4,15})`))
		set("date_audience", regexp.MustCompile(`(?i)\baudience\s+du\s+(\d{2}/\d{2}/\d{4})`))
	case LegalMiseEnDemeure:
		set("montant_reclame", regexp.MustCompile(`(?i)\bsomme de\s+(\d+(?:[.,]\d{1,2})?)`))
		set("delai_paiement", regexp.MustCompile(`(?i)\bdélai de\s+(\d{1,3}\s+jours?)`))
		set("date_limite", regexp.MustCompile(`(?i)\bavant le\s+(\d{2}/\d{2}/\d{4})`))
	case LegalAttestation:
		set("objet_attestation", regexp.MustCompile(`(?i)\batteste\s+(?:sur l'honneur\s+)?(?:que|avoir)\s+([^\n.;]{5,160})`))
		set("beneficiaire", regexp.MustCompile(`(?i)\bau profit de\s+([\p{Lu}][\p{L}'\- ]{2,50})`))
	default:
		set("objet", regexp.MustCompile(`(?im)\bobjet\s*:\s*([^\n]{3,120})`))
	}
}

// extractParties pairs recognized names with the role vocabulary found near
// them, falling back to the "entre X et Y" construction.
func (e *LegalDocsExtractor) extractParties(doc *Document) []map[string]any {
	var parties []map[string]any
	seen := map[string]struct{}{}

	add := func(name, role string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		p := map[string]any{"nom": name}
		if role != "" {
			p["role"] = role
		}
		parties = append(parties, p)
	}

	for _, c := range doc.Candidates {
		if c.Type != recognize.TypeName {
			continue
		}
		role := ""
		ctxLow := strings.ToLower(c.Context)
		for _, r := range legalRoles {
			for _, kw := range r.keywords {
				if strings.Contains(ctxLow, kw) {
					role = r.role
					break
				}
			}
			if role != "" {
				break
			}
		}
		add(c.NormalizedValue, role)
	}

	if len(parties) == 0 {
		if m := reLegalBetween.FindStringSubmatch(doc.Text); m != nil {
			add(compactSpaces(m[1]), "partie_1")
			add(compactSpaces(m[2]), "partie_2")
		}
	}
	// NER completion for documents where nothing else matched
	if len(parties) == 0 {
		for _, name := range entitiesByLabel(doc.Entities, "PER") {
			add(name, "")
		}
	}
	return parties
}

func compactSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
