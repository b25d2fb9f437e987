// Package aggregate merges the per-extractor field groups into one flat
// variable map with canonical French snake_case keys. Sources are applied in
// a fixed precedence order and every key is write-once: a later source never
// overwrites an earlier one. The only exception is the document type, which a
// more specific classification may refine while it is still generic.
package aggregate

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/docvars/extracteur/internal/extract"
	"github.com/docvars/extracteur/internal/structure"
)

const (
	GenericDocumentType = "document_general"
	DefaultLanguage     = "fr"
)

// AggregatedDocument is the merge result: the flat template variables plus
// the untouched per-extractor sections for callers that want the details.
type AggregatedDocument struct {
	FilePath  string                    `json:"file_path,omitempty"`
	Variables map[string]any            `json:"variables"`
	Sections  map[string]map[string]any `json:"sections,omitempty"`
}

// filename keywords used as a last-resort document type default.
var filenameTypes = []struct {
	docType  string
	keywords []string
}{
	{"facture", []string{"facture", "invoice"}},
	{"devis", []string{"devis"}},
	{"contrat", []string{"contrat", "contract"}},
	{"attestation", []string{"attestation"}},
	{"lettre", []string{"lettre", "courrier"}},
	{"rapport", []string{"rapport"}},
}

type Aggregator struct {
	logger *slog.Logger
}

func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// Aggregate builds the variable map from the structure analysis and the field
// groups. Precedence: structure, then personal, legal, identity, contract,
// business. type_document and langue are always present.
func (a *Aggregator) Aggregate(doc *extract.Document, groups []extract.FieldGroup) *AggregatedDocument {
	vars := map[string]any{}
	byKind := map[extract.Kind]map[string]any{}
	sections := map[string]map[string]any{}
	for _, g := range groups {
		byKind[g.Name] = g.Fields
		sections[string(g.Name)] = g.Fields
	}

	a.applyStructure(vars, doc.Structure)
	a.applyPersonal(vars, byKind[extract.KindPersonal])
	a.applyLegal(vars, byKind[extract.KindLegal])
	a.applyIdentity(vars, byKind[extract.KindIdentity])
	a.applyContract(vars, byKind[extract.KindContract])
	a.applyBusiness(vars, byKind[extract.KindBusiness])

	synthesizeFullName(vars)
	a.applyFilenameDefaults(vars, doc.SourcePath)

	if isEmpty(vars["type_document"]) {
		vars["type_document"] = GenericDocumentType
	}
	if isEmpty(vars["langue"]) {
		vars["langue"] = DefaultLanguage
	}

	a.logger.Debug("aggregate.done", "variables", len(vars), "sections", len(sections))
	return &AggregatedDocument{
		FilePath:  doc.SourcePath,
		Variables: vars,
		Sections:  sections,
	}
}

func (a *Aggregator) applyStructure(vars map[string]any, st *structure.Structure) {
	if st == nil {
		return
	}
	setIfAbsent(vars, "type_document", st.DocumentType)
	setIfAbsent(vars, "langue", st.Language)
	setIfAbsent(vars, "titre", st.Title)
}

func (a *Aggregator) applyPersonal(vars map[string]any, fields map[string]any) {
	if fields == nil {
		return
	}
	copySub(vars, fields, "identity", map[string]string{
		"civilite": "civilite", "nom": "nom", "prenom": "prenom",
		"nom_complet": "nom_complet", "date_naissance": "date_naissance",
		"lieu_naissance": "lieu_naissance", "nationalite": "nationalite",
	})
	copySub(vars, fields, "contact", map[string]string{
		"telephone": "telephone", "email": "email", "adresse": "adresse",
	})
	copySub(vars, fields, "professional", map[string]string{
		"profession": "profession", "employeur": "employeur",
	})
	copySub(vars, fields, "ids", map[string]string{
		"cni": "numero_cni", "passeport": "numero_passeport", "nir": "numero_securite_sociale",
	})
	copySub(vars, fields, "banking", map[string]string{
		"iban": "iban", "bic": "bic",
	})
	copySub(vars, fields, "relations", map[string]string{
		"situation_familiale": "situation_familiale", "conjoint": "conjoint",
	})
}

func (a *Aggregator) applyLegal(vars map[string]any, fields map[string]any) {
	if fields == nil {
		return
	}
	refineDocType(vars, fields["doc_type"], "document_juridique")
	setIfAbsent(vars, "lieu_signature", fields["lieu_signature"])
	copySub(vars, fields, "dates", map[string]string{
		"signature": "date_signature", "effet": "date_effet", "expiration": "date_expiration",
	})
	setIfAbsent(vars, "montant", fields["montant"])
	setIfAbsent(vars, "parties", fields["parties"])
	setIfAbsent(vars, "obligations", fields["obligations"])
}

func (a *Aggregator) applyIdentity(vars map[string]any, fields map[string]any) {
	if fields == nil {
		return
	}
	refineDocType(vars, fields["document_type"], "")
	setIfAbsent(vars, "pays", fields["country"])
	setIfAbsent(vars, "numero_piece_identite", fields["document_number"])
	copySub(vars, fields, "titulaire", map[string]string{
		"nom": "nom", "prenom": "prenom", "date_naissance": "date_naissance",
		"lieu_naissance": "lieu_naissance", "sexe": "sexe",
	})
	setIfAbsent(vars, "date_delivrance", fields["date_delivrance"])
	setIfAbsent(vars, "date_expiration", fields["date_expiration"])
	setIfAbsent(vars, "autorite", fields["autorite"])
}

func (a *Aggregator) applyContract(vars map[string]any, fields map[string]any) {
	if fields == nil {
		return
	}
	setIfAbsent(vars, "type_contrat", fields["contract_type"])
	setIfAbsent(vars, "lieu_signature", fields["lieu_signature"])
	copySub(vars, fields, "dates", map[string]string{
		"signature": "date_signature", "debut": "date_debut", "fin": "date_fin",
	})
	setIfAbsent(vars, "duree", fields["duree"])
	setIfAbsent(vars, "renouvellement", fields["renouvellement"])
	setIfAbsent(vars, "preavis", fields["preavis"])
	setIfAbsent(vars, "montant", fields["montant"])
	copySub(vars, fields, "paiement", map[string]string{
		"mode": "mode_paiement", "echeancier": "echeancier",
	})
	setIfAbsent(vars, "parties", fields["parties"])
	setIfAbsent(vars, "obligations", fields["obligations"])
	copySub(vars, fields, "details", map[string]string{
		"poste": "poste", "salaire": "salaire", "regime": "regime",
		"periode_essai": "periode_essai", "prix": "prix", "bien": "bien",
		"prestations": "prestations", "tarif": "tarif",
	})
}

func (a *Aggregator) applyBusiness(vars map[string]any, fields map[string]any) {
	if fields == nil {
		return
	}
	refineDocType(vars, fields["business_type"], "document_commercial")
	setIfAbsent(vars, "numero_document", fields["numero"])
	copySub(vars, fields, "sender", map[string]string{
		"nom": "emetteur", "siret": "siret", "siren": "siren", "tva_intra": "tva_intra",
	})
	copySub(vars, fields, "recipient", map[string]string{
		"nom": "destinataire",
	})
	copySub(vars, fields, "dates", map[string]string{
		"emission": "date_emission", "echeance": "date_echeance", "validite": "validite",
	})
	copySub(vars, fields, "amounts", map[string]string{
		"total_ht": "montant_ht", "tva": "montant_tva", "total_ttc": "montant_ttc", "taux_tva": "taux_tva",
	})
	setIfAbsent(vars, "devise", fields["currency"])
	setIfAbsent(vars, "lignes", fields["line_items"])
}

// synthesizeFullName builds nom_complet from prenom and nom when every piece
// exists and the composed form is still missing.
func synthesizeFullName(vars map[string]any) {
	if !isEmpty(vars["nom_complet"]) {
		return
	}
	nom, _ := vars["nom"].(string)
	prenom, _ := vars["prenom"].(string)
	if nom == "" || prenom == "" {
		return
	}
	vars["nom_complet"] = prenom + " " + nom
}

// applyFilenameDefaults fills a still-generic document type from the source
// file name and records the name itself.
func (a *Aggregator) applyFilenameDefaults(vars map[string]any, sourcePath string) {
	if sourcePath == "" {
		return
	}
	base := filepath.Base(sourcePath)
	setIfAbsent(vars, "nom_fichier", base)

	current, _ := vars["type_document"].(string)
	if current != "" && current != GenericDocumentType {
		return
	}
	low := strings.ToLower(base)
	for _, entry := range filenameTypes {
		for _, kw := range entry.keywords {
			if strings.Contains(low, kw) {
				vars["type_document"] = entry.docType
				return
			}
		}
	}
}

// refineDocType upgrades type_document when it is absent, generic, or equal
// to the refining source's own generic marker.
func refineDocType(vars map[string]any, val any, sourceGeneric string) {
	s, _ := val.(string)
	if s == "" || s == sourceGeneric {
		return
	}
	current, _ := vars["type_document"].(string)
	if current == "" || current == GenericDocumentType {
		vars["type_document"] = s
	}
}

func setIfAbsent(vars map[string]any, key string, val any) {
	if isEmpty(val) {
		return
	}
	if existing, ok := vars[key]; ok && !isEmpty(existing) {
		return
	}
	vars[key] = val
}

func copySub(vars map[string]any, fields map[string]any, sub string, mapping map[string]string) {
	m, ok := fields[sub].(map[string]any)
	if !ok {
		return
	}
	for from, to := range mapping {
		setIfAbsent(vars, to, m[from])
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
