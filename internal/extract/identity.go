package extract

import (
	"regexp"
	"strings"

	"github.com/docvars/extracteur/internal/recognize"
	"github.com/docvars/extracteur/internal/refdata"
)

// identity document types, in detection priority order.
var identityTypeKeywords = []struct {
	docType  string
	keywords []string
}{
	{"cni", []string{"carte nationale d'identité", "carte d'identité nationale", "carte d'identité", "cnie"}},
	{"passeport", []string{"passeport", "passport"}},
	{"permis_conduire", []string{"permis de conduire"}},
	{"titre_sejour", []string{"titre de séjour", "carte de séjour", "carte de résident"}},
}

var identityCountryKeywords = []struct {
	country  string
	keywords []string
}{
	{"fr", []string{"république française"}},
	{"ma", []string{"royaume du maroc"}},
	{"sn", []string{"république du sénégal"}},
	{"ci", []string{"république de côte d'ivoire"}},
	{"cm", []string{"république du cameroun"}},
	{"dz", []string{"république algérienne"}},
	{"tn", []string{"république tunisienne"}},
}

var (
	reIDNumberLabel   = regexp.MustCompile(`(?i)\bn°(?:\s*(?:cni|cin|cnie|passeport|carte|document))?\s*:?\s*([A-Z0-9][A-Z0-9 ]{4,20}[A-Z0-9])`)
	reIDLongDigits    = regexp.MustCompile(`\b\d{8,18}\b`)
	reIDBirth         = regexp.MustCompile(`(?i)\bné(?:e)?\s+le\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reIDBirthPlace    = regexp.MustCompile(`(?i)\b(?:né(?:e)?\s+)?à\s*:?\s*([\p{Lu}][\p{L}'\- ]{1,40})`)
	reIDSex           = regexp.MustCompile(`(?i)\bsexe\s*:?\s*([MF])\b`)
	reIDIssued        = regexp.MustCompile(`(?i)\b(?:délivré(?:e)?\s+le|date de délivrance)\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reIDExpiry        = regexp.MustCompile(`(?i)\b(?:valable jusqu'au|expire le|date d'expiration)\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reIDAuthority     = regexp.MustCompile(`(?i)\b(?:délivré(?:e)? par|autorité)\s*:?\s*([^\n.;]{3,60})`)
	reIDTaxKind       = regexp.MustCompile(`(?i)\b(nif|ninea|ice|matricule fiscal|carte fiscale|identifiant fiscal)\b`)
	reIDProCard       = regexp.MustCompile(`(?i)\bcarte professionnelle\b`)
	reIDProNumber     = regexp.MustCompile(`(?i)\bcarte professionnelle\s*(?:n°)?\s*:?\s*([A-Z0-9\-]{4,20})`)
	reIDProProfession = regexp.MustCompile(`(?i)\bprofession\s*:?\s*([\p{L}'\- ]{3,40})`)
	reIDProIssuer     = regexp.MustCompile(`(?i)\b(?:délivrée? par|organisme)\s*:?\s*([^\n.;]{3,60})`)
)

// IdentityDocExtractor runs a two-stage type+country detection (keywords,
// then numeric formats, then a coarse image heuristic when the OCR
// collaborator forwarded image measurements) and extracts the document
// number through a country+type pattern with a generic fallback chain.
type IdentityDocExtractor struct {
	tables *refdata.Tables
}

func NewIdentityDocExtractor(tables *refdata.Tables) *IdentityDocExtractor {
	return &IdentityDocExtractor{tables: tables}
}

func (e *IdentityDocExtractor) Kind() Kind { return KindIdentity }

func (e *IdentityDocExtractor) Extract(doc *Document) (FieldGroup, error) {
	text := doc.Text
	low := strings.ToLower(strings.ReplaceAll(text, "’", "'"))

	docType := detectIdentityType(low)
	country := e.detectCountry(low, docType, text, doc)

	fields := map[string]any{}
	if docType != "" {
		fields["document_type"] = docType
	}
	if country != "" {
		fields["country"] = country
	}

	if number := e.documentNumber(text, doc, docType, country); number != "" {
		fields["document_number"] = number
	}

	holder := map[string]any{}
	if v := firstGroup(rePersNomLabel, text); v != "" {
		holder["nom"] = recognize.TitleCaseName(v)
	}
	if v := firstGroup(rePersPrenom, text); v != "" {
		holder["prenom"] = recognize.TitleCaseName(v)
	}
	if v := firstGroup(reIDBirth, text); v != "" {
		holder["date_naissance"] = v
	}
	if v := firstGroup(reIDBirthPlace, text); v != "" {
		holder["lieu_naissance"] = v
	}
	if v := firstGroup(reIDSex, text); v != "" {
		holder["sexe"] = strings.ToUpper(v)
	}
	fillIfEmpty(holder, "nom", firstEntity(doc.Entities, "PER"))
	if holder = pruneEmpty(holder); len(holder) > 0 {
		fields["titulaire"] = holder
	}

	if v := firstGroup(reIDIssued, text); v != "" {
		fields["date_delivrance"] = v
	}
	if v := firstGroup(reIDExpiry, text); v != "" {
		fields["date_expiration"] = v
	}
	if v := firstGroup(reIDAuthority, text); v != "" {
		fields["autorite"] = v
	}

	if fiscal := e.taxIDSubFlow(text, low, doc); len(fiscal) > 0 {
		fields["fiscal"] = fiscal
	}
	if pro := e.proCardSubFlow(text, low); len(pro) > 0 {
		fields["professionnel"] = pro
	}

	return FieldGroup{Name: KindIdentity, Fields: fields}, nil
}

func detectIdentityType(low string) string {
	for _, entry := range identityTypeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(low, kw) {
				return entry.docType
			}
		}
	}
	return ""
}

// detectCountry: explicit state mention, then generic country mention, then
// numeric-format inference over the per-country tables, then — only when
// image measurements exist — the aspect-ratio/color heuristic.
func (e *IdentityDocExtractor) detectCountry(low, docType, text string, doc *Document) string {
	for _, entry := range identityCountryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(low, kw) {
				return entry.country
			}
		}
	}
	if cc := e.tables.CountryOfMention(low); cc != "" {
		return cc
	}
	if docType != "" {
		matched := ""
		for _, cc := range e.tables.Countries {
			for _, spec := range e.tables.Identifiers[cc] {
				if spec.Kind != docType {
					continue
				}
				if spec.Pattern.MatchString(text) {
					if matched != "" && matched != cc {
						matched = ""
						break
					}
					matched = cc
				}
			}
		}
		if matched != "" {
			return matched
		}
	}
	if doc.Image != nil {
		return countryFromImage(doc.Image)
	}
	return normalizeLocaleHint(doc.LocaleHint, e.tables)
}

// countryFromImage is deliberately coarse: ID-1 cards have a ~1.58 aspect
// ratio and each issuing state a characteristic dominant color.
func countryFromImage(img *ImageMeta) string {
	if img.AspectRatio < 1.4 || img.AspectRatio > 1.8 {
		return ""
	}
	switch strings.ToLower(img.DominantColor) {
	case "blue":
		return "fr"
	case "green":
		return "sn"
	case "orange":
		return "ci"
	default:
		return ""
	}
}

// documentNumber prefers the country+type table pattern, then the labelled
// generic shape, then a bare digit run.
func (e *IdentityDocExtractor) documentNumber(text string, doc *Document, docType, country string) string {
	if docType != "" {
		if c, ok := bestCandidate(doc.Candidates, recognize.TypeIdentifier, docType); ok {
			return c.NormalizedValue
		}
	}
	if country != "" && docType != "" {
		for _, spec := range e.tables.Identifiers[country] {
			if spec.Kind != docType {
				continue
			}
			if m := spec.Pattern.FindString(text); m != "" {
				return strings.ToUpper(strings.ReplaceAll(m, " ", ""))
			}
		}
	}
	if v := firstGroup(reIDNumberLabel, text); v != "" {
		return strings.ToUpper(strings.ReplaceAll(v, " ", ""))
	}
	if m := reIDLongDigits.FindString(text); m != "" {
		return m
	}
	return ""
}

func (e *IdentityDocExtractor) taxIDSubFlow(text, low string, doc *Document) map[string]any {
	m := reIDTaxKind.FindString(low)
	if m == "" {
		return nil
	}
	fiscal := map[string]any{"type": normalizeTaxKind(m)}
	kind := normalizeTaxKind(m)
	if c, ok := bestCandidate(doc.Candidates, recognize.TypeIdentifier, kind); ok {
		fiscal["numero"] = c.NormalizedValue
	} else if v := firstGroup(reIDNumberLabel, text); v != "" {
		fiscal["numero"] = strings.ToUpper(strings.ReplaceAll(v, " ", ""))
	}
	return pruneEmpty(fiscal)
}

func normalizeTaxKind(s string) string {
	switch normalizeLower(s) {
	case "matricule fiscal":
		return "mf"
	case "carte fiscale", "identifiant fiscal":
		return "nif"
	default:
		return normalizeLower(s)
	}
}

func (e *IdentityDocExtractor) proCardSubFlow(text, low string) map[string]any {
	if !reIDProCard.MatchString(low) {
		return nil
	}
	pro := map[string]any{}
	if v := firstGroup(reIDProNumber, text); v != "" {
		pro["numero"] = v
	}
	if v := firstGroup(reIDProProfession, text); v != "" {
		pro["profession"] = v
	}
	if v := firstGroup(reIDProIssuer, text); v != "" {
		pro["organisme"] = v
	}
	return pruneEmpty(pro)
}

func normalizeLocaleHint(hint string, tables *refdata.Tables) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	for _, cc := range tables.Countries {
		if hint == cc {
			return cc
		}
	}
	return ""
}
