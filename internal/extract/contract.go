package extract

import (
	"regexp"
	"strings"
)

// contract sub-types, in registration order for the tie-break.
var contractSubtypes = []struct {
	subtype  string
	keywords []string
}{
	{"prestation_service", []string{"prestation de services", "contrat de prestation", "prestataire", "cahier des charges", "mission"}},
	{"vente", []string{"contrat de vente", "acte de vente", "vendeur", "acquéreur", "prix de vente"}},
	{"travail", []string{"contrat de travail", "employeur", "salarié", "embauche", "cdi", "cdd", "période d'essai"}},
}

const (
	contractTitleWeight   = 5
	contractOpeningWeight = 3
	contractBodyWeight    = 1
	contractOpeningRunes  = 500
	contractBodyRunes     = 2000
)

var (
	reContractDuration    = regexp.MustCompile(`(?i)\b(?:pour une\s+)?durée\s+(?:de\s+|déterminée de\s+)?(\d{1,3}\s+(?:ans?|mois|semaines?|jours?))`)
	reContractRenewal     = regexp.MustCompile(`(?i)\b(renouvelable par tacite reconduction|tacite reconduction|renouvelable|non renouvelable)\b`)
	reContractNotice      = regexp.MustCompile(`(?i)\bpréavis\s+de\s+(\d{1,3}\s+(?:mois|semaines?|jours?))`)
	reContractPayMode     = regexp.MustCompile(`(?i)\b(?:paiement|règlement|payable)\s+(?:par|en)\s+(virement(?:\s+bancaire)?|chèque|espèces|prélèvement(?:\s+automatique)?|carte bancaire|mensualités)`)
	reContractPaySchedule = regexp.MustCompile(`(?i)\b(?:payable|versé(?:e)?|facturé(?:e)?)\s+(mensuellement|trimestriellement|annuellement|à la livraison|à réception de facture|d'avance)`)
	reContractPenalty     = regexp.MustCompile(`(?i)\bpénalité(?:s)?\s+de\s+([^\n.;]{3,80})`)
	// no leading \b: it is ASCII-only and would break the "à ..." alternative
	reContractStart       = regexp.MustCompile(`(?i)(?:à compter du|prend effet le|début(?:era)? le|date de début\s*:?)\s*(\d{2}/\d{2}/\d{4})`)
	reContractEnd         = regexp.MustCompile(`(?i)(?:jusqu'au|prend fin le|se termine le|date de fin\s*:?)\s*(\d{2}/\d{2}/\d{4})`)

	// sub-type extensions
	reContractPoste   = regexp.MustCompile(`(?i)\ben qualité d[e'’]\s*([\p{L}'\- ]{3,50})`)
	reContractSalaire = regexp.MustCompile(`(?i)\b(?:salaire|rémunération)\s+(?:mensuel(?:le)?\s+)?(?:brut(?:e)?\s+)?de\s+(\d+(?:\s?\d{3})*(?:[.,]\d{1,2})?)`)
	reContractEssai   = regexp.MustCompile(`(?i)\bpériode d'essai\s+(?:de\s+)?(\d{1,2}\s+(?:mois|semaines?))`)
	reContractRegime  = regexp.MustCompile(`(?i)\b(cdi|cdd|contrat à durée indéterminée|contrat à durée déterminée)\b`)
	reContractBien    = regexp.MustCompile(`(?i)\bvend\s+(?:à[^,]{0,60},?\s*)?([^\n.;]{5,100})`)
	reContractPrix    = regexp.MustCompile(`(?i)\bprix\s+(?:de vente\s+)?(?:convenu\s+)?(?:de\s+)?(\d+(?:\s?\d{3})*(?:[.,]\d{1,2})?)`)
	reContractLivr    = regexp.MustCompile(`(?i)\b(?:livraison|livré(?:e)?)\s+(?:prévue\s+)?(?:le|au)\s+(\d{2}/\d{2}/\d{4})`)
	reContractMission = regexp.MustCompile(`(?i)\b(?:mission|prestations?)\s+(?:suivante(?:s)?\s*)?:?\s*([^\n.;]{5,140})`)
	reContractTarif   = regexp.MustCompile(`(?i)\b(?:tarif|honoraires?|taux)\s+(?:journalier\s+|horaire\s+)?(?:de\s+)?(\d+(?:\s?\d{3})*(?:[.,]\d{1,2})?)`)
)

// ContractExtractor classifies the contract sub-type with a weighted
// keyword scan over the title, the opening and the body, then fills the
// shared contract fields plus the sub-type extension.
type ContractExtractor struct{}

func NewContractExtractor() *ContractExtractor {
	return &ContractExtractor{}
}

func (e *ContractExtractor) Kind() Kind { return KindContract }

func (e *ContractExtractor) Extract(doc *Document) (FieldGroup, error) {
	text := doc.Text
	title := ""
	if doc.Structure != nil {
		title = doc.Structure.Title
	}

	subtype := classifyContractSubtype(title, text)

	fields := map[string]any{
		"contract_type": subtype,
	}

	if parties := contractParties(doc); len(parties) > 0 {
		fields["parties"] = parties
	}

	dates := map[string]any{}
	if m := reLegalSigned.FindStringSubmatch(text); m != nil {
		fields["lieu_signature"] = strings.TrimSpace(m[1])
		dates["signature"] = m[2]
	}
	if v := firstGroup(reContractStart, text); v != "" {
		dates["debut"] = v
	}
	if v := firstGroup(reContractEnd, text); v != "" {
		dates["fin"] = v
	}
	if _, ok := dates["signature"]; !ok {
		fillIfEmpty(dates, "signature", firstEntity(doc.Entities, "DATE"))
	}
	if len(dates) > 0 {
		fields["dates"] = dates
	}

	if v := firstGroup(reContractDuration, text); v != "" {
		fields["duree"] = v
	}
	if m := reContractRenewal.FindString(text); m != "" {
		fields["renouvellement"] = normalizeLower(m)
	}
	if v := firstGroup(reContractNotice, text); v != "" {
		fields["preavis"] = v
	}

	if v := firstGroup(reLegalAmount, text); v != "" {
		fields["montant"] = strings.ReplaceAll(v, ",", ".")
	}

	paiement := map[string]any{}
	if v := firstGroup(reContractPayMode, text); v != "" {
		paiement["mode"] = normalizeLower(v)
	}
	if v := firstGroup(reContractPaySchedule, text); v != "" {
		paiement["echeancier"] = normalizeLower(v)
	}
	if v := firstGroup(reContractPenalty, text); v != "" {
		paiement["penalites"] = v
	}
	if len(paiement) > 0 {
		fields["paiement"] = paiement
	}

	if obligations := allGroups(reLegalObligation, text); len(obligations) > 0 {
		fields["obligations"] = obligations
	}

	if ext := contractExtension(subtype, text); len(ext) > 0 {
		fields["details"] = ext
	}

	return FieldGroup{Name: KindContract, Fields: fields}, nil
}

// classifyContractSubtype scores each sub-type: keyword hits in the title
// weigh 5, in the first 500 runes 3, in the first 2000 runes 1. The
// first-registered sub-type wins ties; no hits at all means the generic type.
func classifyContractSubtype(title, text string) string {
	low := strings.ToLower(text)
	titleLow := strings.ToLower(title)
	opening := truncateRunes(low, contractOpeningRunes)
	body := truncateRunes(low, contractBodyRunes)

	best, bestScore := "contrat_general", 0
	for _, entry := range contractSubtypes {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(titleLow, kw) {
				score += contractTitleWeight
			}
			if strings.Contains(opening, kw) {
				score += contractOpeningWeight
			}
			score += strings.Count(body, kw) * contractBodyWeight
		}
		if score > bestScore {
			best, bestScore = entry.subtype, score
		}
	}
	return best
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func contractExtension(subtype, text string) map[string]any {
	ext := map[string]any{}
	set := func(key string, re *regexp.Regexp) {
		if v := firstGroup(re, text); v != "" {
			ext[key] = v
		}
	}
	switch subtype {
	case "travail":
		set("poste", reContractPoste)
		set("salaire", reContractSalaire)
		set("periode_essai", reContractEssai)
		if m := reContractRegime.FindString(text); m != "" {
			ext["regime"] = normalizeContractRegime(m)
		}
	case "vente":
		set("bien", reContractBien)
		set("prix", reContractPrix)
		set("date_livraison", reContractLivr)
	case "prestation_service":
		set("prestations", reContractMission)
		set("tarif", reContractTarif)
	}
	return ext
}

func normalizeContractRegime(s string) string {
	switch normalizeLower(s) {
	case "cdi", "contrat à durée indéterminée":
		return "cdi"
	case "cdd", "contrat à durée déterminée":
		return "cdd"
	}
	return normalizeLower(s)
}

// contractParties reuses the legal role vocabulary; contracts and legal
// documents name their signatories the same way.
func contractParties(doc *Document) []map[string]any {
	legal := LegalDocsExtractor{}
	return legal.extractParties(doc)
}
