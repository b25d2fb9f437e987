package extract

import (
	"regexp"

	"github.com/docvars/extracteur/internal/recognize"
)

var (
	rePersCivility   = regexp.MustCompile(`(?i)\b(monsieur|madame|mademoiselle|m\.|mme|mlle)\b`)
	rePersBirthDate  = regexp.MustCompile(`(?i)\bné(?:e)?\s+le\s+(\d{2}/\d{2}/\d{4})`)
	rePersBirthPlace = regexp.MustCompile(`(?i)\bné(?:e)?(?:\s+le\s+\d{2}/\d{2}/\d{4})?\s+à\s+([\p{Lu}][\p{L}'\- ]{1,40})`)
	rePersNational   = regexp.MustCompile(`(?i)\bde\s+nationalité\s+([\p{L}]+)`)
	rePersEmail      = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	rePersProfession = regexp.MustCompile(`(?i)\b(?:profession|exerçant la profession d[e'’]\s*)\s*:?\s*([\p{L}'\- ]{3,40})`)
	rePersEmployer   = regexp.MustCompile(`(?i)\b(?:employeur|employé(?:e)? par|salarié(?:e)? de la société)\s*:?\s*([\p{L}0-9'\- ]{2,60})`)
	rePersMarital    = regexp.MustCompile(`(?i)\b(célibataire|marié(?:e)?|pacsé(?:e)?|divorcé(?:e)?|veuf|veuve)\b`)
	rePersSpouse     = regexp.MustCompile(`(?i)\bépou(?:x|se)\s+de\s+([\p{Lu}][\p{L}'\- ]{2,40})`)
	rePersBIC        = regexp.MustCompile(`(?i)\bbic\s*:?\s*([A-Z]{4}[A-Z]{2}[A-Z0-9]{2}(?:[A-Z0-9]{3})?)\b`)
	// line-anchored: \b is ASCII-only so "\bnom" would also hit "Prénom"
	rePersNomLabel   = regexp.MustCompile(`(?im)^nom\s*:\s*([^\n]{2,40})`)
	rePersPrenom     = regexp.MustCompile(`(?im)\bprénom(?:s)?\s*:\s*([^\n]{2,40})`)
)

// subMapWeights drive the per-sub-map fill confidence.
var personalWeights = map[string]map[string]float64{
	"identity":     {"nom": 3, "prenom": 2, "nom_complet": 2, "date_naissance": 2, "lieu_naissance": 1, "nationalite": 1, "civilite": 1},
	"contact":      {"telephone": 3, "email": 3, "adresse": 3},
	"professional": {"profession": 2, "employeur": 2},
	"ids":          {"cni": 2, "passeport": 2, "nir": 2},
	"banking":      {"iban": 3, "bic": 1},
	"relations":    {"situation_familiale": 1, "conjoint": 1},
}

// PersonalDataExtractor builds the identity / contact / professional / ids /
// banking / relations sub-maps from labelled fields, recognizer candidates
// and, for still-empty slots, NER entities.
type PersonalDataExtractor struct{}

func NewPersonalDataExtractor() *PersonalDataExtractor {
	return &PersonalDataExtractor{}
}

func (e *PersonalDataExtractor) Kind() Kind { return KindPersonal }

func (e *PersonalDataExtractor) Extract(doc *Document) (FieldGroup, error) {
	text := doc.Text

	identity := map[string]any{}
	if m := rePersCivility.FindString(text); m != "" {
		identity["civilite"] = normalizeCivility(m)
	}
	if v := firstGroup(rePersNomLabel, text); v != "" {
		identity["nom"] = recognize.TitleCaseName(v)
	}
	if v := firstGroup(rePersPrenom, text); v != "" {
		identity["prenom"] = recognize.TitleCaseName(v)
	}
	if c, ok := bestCandidate(doc.Candidates, recognize.TypeName, ""); ok {
		fillIfEmpty(identity, "nom_complet", c.NormalizedValue)
	}
	if v := firstGroup(rePersBirthDate, text); v != "" {
		identity["date_naissance"] = v
	}
	if v := firstGroup(rePersBirthPlace, text); v != "" {
		identity["lieu_naissance"] = v
	}
	if v := firstGroup(rePersNational, text); v != "" {
		identity["nationalite"] = v
	}
	// NER completion: never overrides a populated field
	fillIfEmpty(identity, "nom_complet", firstEntity(doc.Entities, "PER"))

	contact := map[string]any{}
	if c, ok := bestCandidate(doc.Candidates, recognize.TypePhone, ""); ok {
		contact["telephone"] = c.NormalizedValue
	}
	if m := rePersEmail.FindString(text); m != "" {
		contact["email"] = m
	}
	if c, ok := bestCandidate(doc.Candidates, recognize.TypeAddress, ""); ok {
		contact["adresse"] = c.NormalizedValue
	}
	fillIfEmpty(contact, "adresse", firstEntity(doc.Entities, "LOC"))

	professional := map[string]any{}
	if v := firstGroup(rePersProfession, text); v != "" {
		professional["profession"] = v
	}
	if v := firstGroup(rePersEmployer, text); v != "" {
		professional["employeur"] = v
	}
	fillIfEmpty(professional, "employeur", firstEntity(doc.Entities, "ORG"))

	ids := map[string]any{}
	for _, kind := range []string{"cni", "passeport", "nir"} {
		if c, ok := bestCandidate(doc.Candidates, recognize.TypeIdentifier, kind); ok {
			ids[kind] = c.NormalizedValue
		}
	}

	banking := map[string]any{}
	if c, ok := bestCandidate(doc.Candidates, recognize.TypeIdentifier, "iban"); ok {
		banking["iban"] = c.NormalizedValue
	}
	if v := firstGroup(rePersBIC, text); v != "" {
		banking["bic"] = v
	}

	relations := map[string]any{}
	if m := rePersMarital.FindString(text); m != "" {
		relations["situation_familiale"] = normalizeLower(m)
	}
	if v := firstGroup(rePersSpouse, text); v != "" {
		relations["conjoint"] = recognize.TitleCaseName(v)
	}

	fields := map[string]any{}
	confidences := map[string]any{}
	for name, sub := range map[string]map[string]any{
		"identity": identity, "contact": contact, "professional": professional,
		"ids": ids, "banking": banking, "relations": relations,
	} {
		sub = pruneEmpty(sub)
		if len(sub) == 0 {
			continue
		}
		fields[name] = sub
		confidences[name] = fillConfidence(sub, personalWeights[name])
	}
	if len(confidences) > 0 {
		fields["confidence"] = confidences
	}

	return FieldGroup{Name: KindPersonal, Fields: fields}, nil
}

func normalizeCivility(s string) string {
	switch normalizeLower(s) {
	case "monsieur", "m.":
		return "M."
	case "madame", "mme":
		return "Mme"
	case "mademoiselle", "mlle":
		return "Mlle"
	}
	return s
}
