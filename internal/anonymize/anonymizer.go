// Package anonymize rewrites sensitive variables after validation. The input
// document is never mutated: callers get a deep copy with the selected
// categories masked, pseudonymized or redacted.
package anonymize

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"unicode"

	"github.com/docvars/extracteur/internal/aggregate"
	"github.com/docvars/extracteur/internal/common"
)

const (
	StrategyMask      = "mask"
	StrategyPseudonym = "pseudonym"
	StrategyRedact    = "redact"

	redactedPlaceholder = "[SUPPRIMÉ]"
	maskVisibleSuffix   = 2
)

// categoryKeys maps an anonymization category to the variable keys it covers.
// Section sub-maps are walked with the same key set.
var categoryKeys = map[string][]string{
	"ids":     {"numero_cni", "numero_passeport", "numero_securite_sociale", "numero_piece_identite", "siret", "siren", "tva_intra", "cni", "passeport", "nir"},
	"banking": {"iban", "bic"},
	"phone":   {"telephone"},
	"email":   {"email"},
	"names":   {"nom", "prenom", "nom_complet", "conjoint"},
	"address": {"adresse"},
}

type Anonymizer struct {
	cfg    common.AnonymizeConfig
	keys   map[string]struct{}
	logger *slog.Logger
}

func NewAnonymizer(cfg common.AnonymizeConfig, logger *slog.Logger) *Anonymizer {
	if logger == nil {
		logger = slog.Default()
	}
	keys := map[string]struct{}{}
	for _, cat := range cfg.Categories {
		for _, key := range categoryKeys[strings.ToLower(strings.TrimSpace(cat))] {
			keys[key] = struct{}{}
		}
	}
	return &Anonymizer{cfg: cfg, keys: keys, logger: logger}
}

// Anonymize returns a copy of doc with every covered string variable
// rewritten by the configured strategy. Disabled anonymizers still copy, so
// callers can always treat the result as theirs.
func (a *Anonymizer) Anonymize(doc *aggregate.AggregatedDocument) *aggregate.AggregatedDocument {
	if doc == nil {
		return nil
	}
	out := &aggregate.AggregatedDocument{
		FilePath:  doc.FilePath,
		Variables: a.copyMap(doc.Variables, a.cfg.Enabled),
	}
	if doc.Sections != nil {
		out.Sections = make(map[string]map[string]any, len(doc.Sections))
		for name, section := range doc.Sections {
			out.Sections[name] = a.copyMap(section, a.cfg.Enabled)
		}
	}
	if a.cfg.Enabled {
		a.logger.Debug("anonymize.done", "strategy", a.cfg.Strategy, "keys", len(a.keys))
	}
	return out
}

func (a *Anonymizer) copyMap(m map[string]any, apply bool) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, val := range m {
		switch t := val.(type) {
		case map[string]any:
			out[key] = a.copyMap(t, apply)
		case []map[string]any:
			cp := make([]map[string]any, len(t))
			for i, sub := range t {
				cp[i] = a.copyMap(sub, apply)
			}
			out[key] = cp
		case []string:
			out[key] = append([]string(nil), t...)
		case string:
			if apply {
				if _, covered := a.keys[key]; covered {
					out[key] = a.apply(t)
					continue
				}
			}
			out[key] = t
		default:
			out[key] = val
		}
	}
	return out
}

func (a *Anonymizer) apply(value string) string {
	switch a.cfg.Strategy {
	case StrategyPseudonym:
		return pseudonym(a.cfg.Salt, value)
	case StrategyRedact:
		return redactedPlaceholder
	default:
		return mask(value)
	}
}

// mask replaces letters and digits with '*', keeps separators, and leaves the
// last two alphanumerics visible.
func mask(value string) string {
	runes := []rune(value)
	visible := maskVisibleSuffix
	for i := len(runes) - 1; i >= 0; i-- {
		if !unicode.IsLetter(runes[i]) && !unicode.IsDigit(runes[i]) {
			continue
		}
		if visible > 0 {
			visible--
			continue
		}
		runes[i] = '*'
	}
	return string(runes)
}

// pseudonym derives a stable salted token: the same value with the same salt
// always maps to the same pseudonym.
func pseudonym(salt, value string) string {
	h := fnv.New64a()
	h.Write([]byte(salt))
	h.Write([]byte(value))
	return fmt.Sprintf("anon_%016x", h.Sum64())
}
