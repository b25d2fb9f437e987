package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/docvars/extracteur/internal/refdata"
	"github.com/docvars/extracteur/internal/structure"
)

// business sub-types, scored by pattern-hit counting.
var businessSubtypes = []struct {
	subtype  string
	patterns []*regexp.Regexp
}{
	{"facture", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bfactures?\b`),
		regexp.MustCompile(`(?i)\bfacturation\b`),
		regexp.MustCompile(`(?i)\bnet à payer\b`),
	}},
	{"devis", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bdevis\b`),
		regexp.MustCompile(`(?i)\bproposition commerciale\b`),
		regexp.MustCompile(`(?i)\bvalidité de l'offre\b`),
	}},
	{"bon_commande", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbon de commande\b`),
		regexp.MustCompile(`(?i)\bcommande n°`),
	}},
	{"bon_livraison", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bbon de livraison\b`),
	}},
	{"avoir", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bavoir n°`),
		regexp.MustCompile(`(?i)\bnote de crédit\b`),
	}},
	{"recu", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\breçu\s+(?:de paiement|n°)`),
		regexp.MustCompile(`(?i)\bquittance\b`),
	}},
}

var (
	reBizNumber    = regexp.MustCompile(`(?i)\b(?:facture|devis|commande|avoir|bon de livraison|reçu)\s*(?:n°|no|num[eé]ro|#)\s*:?\s*([A-Z0-9][A-Z0-9/\-]{1,20})`)
	reBizSIRET     = regexp.MustCompile(`(?i)\bsiret\s*(?:n°)?\s*:?\s*(\d(?:[ .]?\d){8,13})`)
	reBizSIREN     = regexp.MustCompile(`(?i)\bsiren\s*(?:n°)?\s*:?\s*(\d(?:[ .]?\d){8})`)
	reBizTVAIntra  = regexp.MustCompile(`(?i)\b(?:n°\s*)?tva\s+intra(?:communautaire)?\s*:?\s*(FR\s*[0-9A-Z]{2}\s*\d{3}\s*\d{3}\s*\d{3}|FR[0-9A-Z]{2}\d{9})`)
	reBizSender    = regexp.MustCompile(`(?i)\b(?:émetteur|vendeur|fournisseur)\s*:?\s*([^\n]{2,60})`)
	reBizRecipient = regexp.MustCompile(`(?i)\b(?:client|destinataire|facturé à|adressé à)\s*:?\s*([^\n]{2,60})`)
	reBizDateEmit  = regexp.MustCompile(`(?i)\b(?:date\s*(?:de facture|d'émission|du devis)?\s*:?\s*|le\s+)(\d{2}/\d{2}/\d{4})`)
	reBizDateDue   = regexp.MustCompile(`(?i)\b(?:date d'échéance|échéance|payable avant le|à régler avant le)\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reBizValidity  = regexp.MustCompile(`(?i)\bvalidité\s*(?:de l'offre)?\s*:?\s*(\d{1,3}\s+jours?|\d{2}/\d{2}/\d{4})`)
	reBizTotalHT   = regexp.MustCompile(`(?i)\b(?:total|montant)\s+ht\s*:?\s*(\d+(?:[ .]\d{3})*(?:[.,]\d{1,2})?)`)
	reBizTVA       = regexp.MustCompile(`(?i)\b(?:total\s+)?tva(?:\s*\(?\s*\d{1,2}(?:[.,]\d)?\s*%\s*\)?)?\s*:?\s*(\d+(?:[ .]\d{3})*(?:[.,]\d{1,2})?)`)
	reBizTotalTTC  = regexp.MustCompile(`(?i)\b(?:total\s+ttc|net à payer|montant\s+ttc|total à payer)\s*:?\s*(\d+(?:[ .]\d{3})*(?:[.,]\d{1,2})?)`)
	reBizTVARate   = regexp.MustCompile(`(?i)\btva\s*\(?\s*(\d{1,2}(?:[.,]\d)?)\s*%`)
)

// currency keyword vote; the counts decide, EUR wins empty votes, and the
// country inference runs last.
var currencyKeywords = map[string][]string{
	"EUR": {"€", "eur", "euro", "euros"},
	"XOF": {"fcfa", "xof", "franc cfa"},
	"XAF": {"xaf"},
	"MAD": {"dh", "dhs", "mad", "dirham", "dirhams"},
	"TND": {"dt", "tnd", "dinar tunisien", "dinars tunisiens"},
	"DZD": {"da", "dzd", "dinar algérien", "dinars algériens"},
}

var countryCurrency = map[string]string{
	"fr": "EUR", "ma": "MAD", "sn": "XOF", "ci": "XOF", "cm": "XAF", "dz": "DZD", "tn": "TND",
}

const (
	amountCoherenceTolerance = 0.1
	amountCoherenceBonus     = 0.2
)

var businessAmountWeights = map[string]float64{
	"total_ht": 1, "tva": 1, "total_ttc": 2,
}

// BusinessDocExtractor handles invoices, quotes and order forms: document
// number, sender and recipient blocks, dates, amounts with an HT+TVA=TTC
// coherence bonus, currency vote and line items from detected tables.
type BusinessDocExtractor struct {
	tables *refdata.Tables
}

func NewBusinessDocExtractor(tables *refdata.Tables) *BusinessDocExtractor {
	return &BusinessDocExtractor{tables: tables}
}

func (e *BusinessDocExtractor) Kind() Kind { return KindBusiness }

func (e *BusinessDocExtractor) Extract(doc *Document) (FieldGroup, error) {
	text := doc.Text
	low := strings.ToLower(text)

	fields := map[string]any{
		"business_type": classifyBusinessSubtype(text),
	}

	if v := firstGroup(reBizNumber, text); v != "" {
		fields["numero"] = strings.ToUpper(v)
	}

	sender := map[string]any{}
	if v := firstGroup(reBizSender, text); v != "" {
		sender["nom"] = v
	}
	if v := firstGroup(reBizSIRET, text); v != "" {
		if digits := keepDigits(v); len(digits) == 14 {
			sender["siret"] = digits
		}
	}
	if v := firstGroup(reBizSIREN, text); v != "" {
		if digits := keepDigits(v); len(digits) == 9 {
			sender["siren"] = digits
		}
	}
	if v := firstGroup(reBizTVAIntra, text); v != "" {
		sender["tva_intra"] = strings.ToUpper(strings.ReplaceAll(v, " ", ""))
	}
	fillIfEmpty(sender, "nom", firstEntity(doc.Entities, "ORG"))
	if sender = pruneEmpty(sender); len(sender) > 0 {
		fields["sender"] = sender
	}

	recipient := map[string]any{}
	if v := firstGroup(reBizRecipient, text); v != "" {
		recipient["nom"] = v
	}
	if recipient = pruneEmpty(recipient); len(recipient) > 0 {
		fields["recipient"] = recipient
	}

	dates := map[string]any{}
	if v := firstGroup(reBizDateEmit, text); v != "" {
		dates["emission"] = v
	}
	if v := firstGroup(reBizDateDue, text); v != "" {
		dates["echeance"] = v
	}
	if v := firstGroup(reBizValidity, text); v != "" {
		dates["validite"] = v
	}
	if len(dates) > 0 {
		fields["dates"] = dates
	}

	if amounts := e.extractAmounts(text); len(amounts) > 0 {
		fields["amounts"] = amounts
	}

	fields["currency"] = e.detectCurrency(low)

	if items := lineItems(doc.Structure); len(items) > 0 {
		fields["line_items"] = items
	}

	return FieldGroup{Name: KindBusiness, Fields: fields}, nil
}

// classifyBusinessSubtype counts pattern hits per sub-type; the
// first-registered sub-type wins ties and zero hits yields the generic type.
func classifyBusinessSubtype(text string) string {
	best, bestScore := "document_commercial", 0
	for _, entry := range businessSubtypes {
		score := 0
		for _, re := range entry.patterns {
			score += len(re.FindAllStringIndex(text, -1))
		}
		if score > bestScore {
			best, bestScore = entry.subtype, score
		}
	}
	return best
}

// extractAmounts pulls HT, TVA and TTC, then scores a fill confidence with a
// coherence bonus when HT+TVA matches TTC within the tolerance.
func (e *BusinessDocExtractor) extractAmounts(text string) map[string]any {
	amounts := map[string]any{}
	ht, htOK := parseAmount(firstGroup(reBizTotalHT, text))
	tva, tvaOK := parseAmount(firstGroup(reBizTVA, text))
	ttc, ttcOK := parseAmount(firstGroup(reBizTotalTTC, text))
	if htOK {
		amounts["total_ht"] = ht
	}
	if tvaOK {
		amounts["tva"] = tva
	}
	if ttcOK {
		amounts["total_ttc"] = ttc
	}
	if v := firstGroup(reBizTVARate, text); v != "" {
		if rate, ok := parseAmount(v); ok {
			amounts["taux_tva"] = rate
		}
	}
	if len(amounts) == 0 {
		return nil
	}
	// the fill share tops out at 0.8 so that only coherent totals reach 1.0
	score := (1 - amountCoherenceBonus) * fillConfidence(amounts, businessAmountWeights)
	if htOK && tvaOK && ttcOK && math.Abs(ht+tva-ttc) <= amountCoherenceTolerance {
		score += amountCoherenceBonus
	}
	if score > 1 {
		score = 1
	}
	amounts["confidence"] = score
	return amounts
}

// detectCurrency votes with keyword counts, infers from a country mention
// when the vote is empty, and defaults to EUR.
func (e *BusinessDocExtractor) detectCurrency(low string) string {
	best, bestCount := "", 0
	for _, code := range []string{"EUR", "XOF", "XAF", "MAD", "TND", "DZD"} {
		count := 0
		for _, kw := range currencyKeywords[code] {
			count += countCurrencyKeyword(low, kw)
		}
		if count > bestCount {
			best, bestCount = code, count
		}
	}
	if best != "" {
		return best
	}
	if cc := e.tables.CountryOfMention(low); cc != "" {
		if cur, ok := countryCurrency[cc]; ok {
			return cur
		}
	}
	return "EUR"
}

// countCurrencyKeyword counts whole-token occurrences: "da" must not match
// inside "date". The euro sign and multi-word keywords are substring-counted.
func countCurrencyKeyword(low, kw string) int {
	if kw == "€" || strings.Contains(kw, " ") {
		return strings.Count(low, kw)
	}
	count := 0
	for _, tok := range strings.Fields(low) {
		if strings.Trim(tok, ".,;:()") == kw {
			count++
		}
	}
	return count
}

// line-item column headers recognized in detected tables.
var lineItemColumns = map[string][]string{
	"designation": {"désignation", "description", "libellé", "article", "produit"},
	"quantite":    {"quantité", "qté", "qte"},
	"prix_unit":   {"prix unitaire", "pu", "p.u.", "prix unit"},
	"prix_total":  {"total", "montant", "prix total"},
}

// lineItems parses the first detected table whose header row names the
// expected columns. A missing line total is completed as unit price times
// quantity.
func lineItems(st *structure.Structure) []map[string]any {
	if st == nil {
		return nil
	}
	for _, table := range st.Tables {
		if len(table) < 2 {
			continue
		}
		cols := matchLineItemHeader(table[0])
		if _, ok := cols["designation"]; !ok {
			continue
		}
		var items []map[string]any
		for _, row := range table[1:] {
			item := map[string]any{}
			for name, idx := range cols {
				if idx >= len(row) {
					continue
				}
				cell := strings.TrimSpace(row[idx])
				if cell == "" {
					continue
				}
				switch name {
				case "designation":
					item[name] = cell
				default:
					if v, ok := parseAmount(cell); ok {
						item[name] = v
					}
				}
			}
			if _, ok := item["prix_total"]; !ok {
				unit, uOK := item["prix_unit"].(float64)
				qty, qOK := item["quantite"].(float64)
				if uOK && qOK {
					item["prix_total"] = math.Round(unit*qty*100) / 100
				}
			}
			if len(item) > 0 {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

func matchLineItemHeader(header []string) map[string]int {
	cols := map[string]int{}
	for idx, cell := range header {
		cellLow := strings.ToLower(strings.TrimSpace(cell))
		for name, aliases := range lineItemColumns {
			if _, taken := cols[name]; taken {
				continue
			}
			for _, alias := range aliases {
				if strings.Contains(cellLow, alias) {
					cols[name] = idx
					break
				}
			}
		}
	}
	return cols
}

// parseAmount reads a French-formatted amount ("1 234,56") as a float.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	// thousands dots only when a comma decimal follows
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}
