// Package validate checks and normalizes the aggregated variables. Dates are
// converted to ISO 8601, amounts to numbers, and registration numbers are
// checksum-verified. A field that fails validation is dropped from the
// variable map and reported; validation itself never fails the analysis.
package validate

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docvars/extracteur/internal/aggregate"
	"github.com/docvars/extracteur/internal/checksum"
	"github.com/docvars/extracteur/internal/recognize"
)

const (
	SeverityWarning = "warning"
	SeverityError   = "error"

	amountTolerance = 0.1
	maxPlausibleAge = 120

	// document amounts are non-negative; a thousand billion is beyond any
	// invoice, salary or sale price this pipeline handles
	maxPlausibleAmount = 1e12
)

// Issue is one validation finding. Error-severity issues on a field mean the
// field was dropped; cross-field issues keep their fields and only report.
type Issue struct {
	Field    string `json:"field"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Report collects the issues and the dropped field names of one document.
type Report struct {
	Issues  []Issue  `json:"issues,omitempty"`
	Dropped []string `json:"dropped,omitempty"`
}

func (r *Report) add(field, rule, severity, message string) {
	r.Issues = append(r.Issues, Issue{Field: field, Rule: rule, Severity: severity, Message: message})
}

// HasErrors reports whether any error-severity issue was recorded.
func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	reISODate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reFrenchDate = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	rePhoneE164  = regexp.MustCompile(`^\+\d{8,15}$`)
	reEmail      = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	reDigitsOnly = regexp.MustCompile(`^\d+$`)
)

// variable keys holding amounts.
var amountKeys = map[string]struct{}{
	"montant": {}, "montant_ht": {}, "montant_tva": {}, "montant_ttc": {},
	"salaire": {}, "prix": {}, "tarif": {}, "taux_tva": {},
}

// variable keys holding person names, re-cased on the way through.
var nameKeys = map[string]struct{}{
	"nom": {}, "prenom": {}, "nom_complet": {}, "conjoint": {},
}

type Validator struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger, now: time.Now}
}

// Validate normalizes and checks doc.Variables in place and returns the
// report. Invalid fields are removed; cross-field inconsistencies are
// reported without removal.
func (v *Validator) Validate(doc *aggregate.AggregatedDocument) *Report {
	report := &Report{}
	if doc == nil || doc.Variables == nil {
		return report
	}
	vars := doc.Variables

	drop := func(key, rule, message string) {
		delete(vars, key)
		report.Dropped = append(report.Dropped, key)
		report.add(key, rule, SeverityError, message)
	}

	for _, key := range sortedKeys(vars) {
		val := vars[key]
		switch {
		case isDateKey(key):
			s, ok := val.(string)
			if !ok {
				drop(key, "date.type", "date value is not a string")
				continue
			}
			iso, err := toISODate(s)
			if err != nil {
				drop(key, "date.format", err.Error())
				continue
			}
			vars[key] = iso
		case isAmountKey(key):
			f, err := toAmount(val)
			if err != nil {
				drop(key, "amount.format", err.Error())
				continue
			}
			if math.IsNaN(f) || f < 0 || f > maxPlausibleAmount {
				drop(key, "amount.range", fmt.Sprintf("amount %g out of range", f))
				continue
			}
			vars[key] = f
		case key == "telephone":
			s, _ := val.(string)
			if !rePhoneE164.MatchString(s) {
				drop(key, "phone.format", "not an international number")
			}
		case key == "email":
			s, _ := val.(string)
			if !reEmail.MatchString(s) {
				drop(key, "email.format", "not a valid address")
			}
		case key == "siret":
			s, _ := val.(string)
			if len(s) != 14 || !reDigitsOnly.MatchString(s) || !checksum.Luhn(s) {
				drop(key, "siret.checksum", "siret fails the luhn check")
			}
		case key == "siren":
			s, _ := val.(string)
			if len(s) != 9 || !reDigitsOnly.MatchString(s) || !checksum.Luhn(s) {
				drop(key, "siren.checksum", "siren fails the luhn check")
			}
		case key == "iban":
			s, _ := val.(string)
			if !checksum.IBAN(s) {
				drop(key, "iban.checksum", "iban fails the mod-97 check")
			}
		case key == "numero_securite_sociale":
			s, _ := val.(string)
			if !checksum.NIR(s) {
				drop(key, "nir.checksum", "nir fails the key check")
			}
		case isNameKey(key):
			if s, ok := val.(string); ok && s != "" {
				vars[key] = recognize.TitleCaseName(s)
			}
		}
	}

	v.checkCrossField(vars, report)

	if len(report.Issues) > 0 {
		v.logger.Debug("validate.done", "issues", len(report.Issues), "dropped", len(report.Dropped))
	}
	return report
}

func (v *Validator) checkCrossField(vars map[string]any, report *Report) {
	ht, htOK := vars["montant_ht"].(float64)
	tva, tvaOK := vars["montant_tva"].(float64)
	ttc, ttcOK := vars["montant_ttc"].(float64)
	if htOK && tvaOK && ttcOK {
		diff := math.Abs(ht + tva - ttc)
		switch {
		case diff > amountTolerance:
			report.add("montant_ttc", "amounts.incoherent", SeverityError,
				fmt.Sprintf("ht + tva differs from ttc by %.2f", diff))
		case diff > 0.005:
			report.add("montant_ttc", "amounts.rounding", SeverityWarning,
				fmt.Sprintf("ht + tva differs from ttc by %.2f, within tolerance", diff))
		}
	}

	now := v.now()
	if birth, ok := parseISO(vars["date_naissance"]); ok {
		age := now.Year() - birth.Year()
		if birth.After(now) {
			delete(vars, "date_naissance")
			report.Dropped = append(report.Dropped, "date_naissance")
			report.add("date_naissance", "date.future_birth", SeverityError, "birth date is in the future")
		} else if age > maxPlausibleAge {
			report.add("date_naissance", "date.implausible_age", SeverityWarning,
				fmt.Sprintf("implied age %d", age))
		}
	}
	if sig, ok := parseISO(vars["date_signature"]); ok && sig.After(now) {
		report.add("date_signature", "date.future", SeverityWarning, "signature date is in the future")
	}
	checkOrder(vars, report, "date_delivrance", "date_expiration")
	checkOrder(vars, report, "date_debut", "date_fin")
	checkOrder(vars, report, "date_emission", "date_echeance")
}

func checkOrder(vars map[string]any, report *Report, beforeKey, afterKey string) {
	before, okB := parseISO(vars[beforeKey])
	after, okA := parseISO(vars[afterKey])
	if okB && okA && after.Before(before) {
		report.add(afterKey, "date.order", SeverityWarning,
			fmt.Sprintf("%s precedes %s", afterKey, beforeKey))
	}
}

// toISODate accepts DD/MM/YYYY or an already-ISO value and returns YYYY-MM-DD.
func toISODate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if reISODate.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return "", fmt.Errorf("invalid date %q", s)
		}
		return s, nil
	}
	if reFrenchDate.MatchString(s) {
		t, err := time.Parse("02/01/2006", s)
		if err != nil {
			return "", fmt.Errorf("invalid date %q", s)
		}
		return t.Format("2006-01-02"), nil
	}
	return "", fmt.Errorf("unrecognized date format %q", s)
}

func toAmount(val any) (float64, error) {
	switch t := val.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), " ", "")
		s = strings.ReplaceAll(s, ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable amount %q", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("amount has unexpected type %T", val)
}

func parseISO(val any) (time.Time, bool) {
	s, ok := val.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func isDateKey(key string) bool {
	return strings.HasPrefix(key, "date_")
}

func isAmountKey(key string) bool {
	_, ok := amountKeys[key]
	return ok
}

func isNameKey(key string) bool {
	_, ok := nameKeys[key]
	return ok
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
