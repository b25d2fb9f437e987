package validate

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvars/extracteur/internal/aggregate"
)

func testValidator() *Validator {
	v := NewValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
	v.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return v
}

func docWith(vars map[string]any) *aggregate.AggregatedDocument {
	return &aggregate.AggregatedDocument{Variables: vars}
}

func TestValidateDateToISO(t *testing.T) {
	doc := docWith(map[string]any{
		"date_naissance": "15/04/1980",
		"date_signature": "2024-01-31",
	})
	report := testValidator().Validate(doc)

	assert.Empty(t, report.Dropped)
	assert.Equal(t, "1980-04-15", doc.Variables["date_naissance"])
	assert.Equal(t, "2024-01-31", doc.Variables["date_signature"])
}

func TestValidateInvalidDateDropped(t *testing.T) {
	doc := docWith(map[string]any{"date_signature": "32/13/2024"})
	report := testValidator().Validate(doc)

	assert.NotContains(t, doc.Variables, "date_signature")
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "date.format", report.Issues[0].Rule)
	assert.Equal(t, SeverityError, report.Issues[0].Severity)
}

func TestValidateAmounts(t *testing.T) {
	doc := docWith(map[string]any{
		"montant":    "3 500,50",
		"montant_ht": 100.0,
	})
	report := testValidator().Validate(doc)

	assert.Empty(t, report.Dropped)
	assert.Equal(t, 3500.5, doc.Variables["montant"])
	assert.Equal(t, 100.0, doc.Variables["montant_ht"])
}

func TestValidateAmountRange(t *testing.T) {
	doc := docWith(map[string]any{
		"montant_ttc": -50.0,
		"salaire":     "1e300",
		"montant_ht":  100.0,
	})
	report := testValidator().Validate(doc)

	assert.NotContains(t, doc.Variables, "montant_ttc")
	assert.NotContains(t, doc.Variables, "salaire")
	assert.Equal(t, 100.0, doc.Variables["montant_ht"])
	assert.Contains(t, report.Dropped, "montant_ttc")
	assert.Contains(t, report.Dropped, "salaire")
	for _, issue := range report.Issues {
		assert.Equal(t, "amount.range", issue.Rule)
	}
}

func TestValidateAmountCoherence(t *testing.T) {
	// within tolerance: rounding warning only, fields kept
	doc := docWith(map[string]any{
		"montant_ht": 100.0, "montant_tva": 20.0, "montant_ttc": 120.05,
	})
	report := testValidator().Validate(doc)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "amounts.rounding", report.Issues[0].Rule)
	assert.Equal(t, SeverityWarning, report.Issues[0].Severity)
	assert.False(t, report.HasErrors())
	assert.Contains(t, doc.Variables, "montant_ttc")

	// beyond tolerance: inconsistency, fields still kept
	doc = docWith(map[string]any{
		"montant_ht": 100.0, "montant_tva": 20.0, "montant_ttc": 200.0,
	})
	report = testValidator().Validate(doc)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "amounts.incoherent", report.Issues[0].Rule)
	assert.True(t, report.HasErrors())
	assert.Contains(t, doc.Variables, "montant_ttc")

	// exact: no issue
	doc = docWith(map[string]any{
		"montant_ht": 100.0, "montant_tva": 20.0, "montant_ttc": 120.0,
	})
	report = testValidator().Validate(doc)
	assert.Empty(t, report.Issues)
}

func TestValidateChecksums(t *testing.T) {
	doc := docWith(map[string]any{
		"siret":                   "73282932000074",
		"siren":                   "732829320",
		"iban":                    "FR1420041010050500013M02606",
		"numero_securite_sociale": "255081416802538",
	})
	report := testValidator().Validate(doc)
	assert.Empty(t, report.Dropped)

	doc = docWith(map[string]any{
		"siret": "12345678900012",
		"iban":  "FR1420041010050500013M02607",
	})
	report = testValidator().Validate(doc)
	assert.ElementsMatch(t, []string{"siret", "iban"}, report.Dropped)
	assert.NotContains(t, doc.Variables, "siret")
	assert.NotContains(t, doc.Variables, "iban")
}

func TestValidatePhoneAndEmail(t *testing.T) {
	doc := docWith(map[string]any{
		"telephone": "+33612345678",
		"email":     "jean.dupont@example.fr",
	})
	report := testValidator().Validate(doc)
	assert.Empty(t, report.Dropped)

	doc = docWith(map[string]any{
		"telephone": "06 12 34 56 78",
		"email":     "not-an-address",
	})
	report = testValidator().Validate(doc)
	assert.ElementsMatch(t, []string{"telephone", "email"}, report.Dropped)
}

func TestValidateNameRecased(t *testing.T) {
	doc := docWith(map[string]any{"nom": "DUPONT", "prenom": "jean-pierre"})
	testValidator().Validate(doc)

	assert.Equal(t, "Dupont", doc.Variables["nom"])
	assert.Equal(t, "Jean-Pierre", doc.Variables["prenom"])
}

func TestValidateBirthDatePlausibility(t *testing.T) {
	doc := docWith(map[string]any{"date_naissance": "01/01/2030"})
	report := testValidator().Validate(doc)
	assert.NotContains(t, doc.Variables, "date_naissance")
	assert.True(t, report.HasErrors())

	doc = docWith(map[string]any{"date_naissance": "01/01/1880"})
	report = testValidator().Validate(doc)
	assert.Contains(t, doc.Variables, "date_naissance")
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "date.implausible_age", report.Issues[0].Rule)
}

func TestValidateDateOrder(t *testing.T) {
	doc := docWith(map[string]any{
		"date_debut": "01/03/2024",
		"date_fin":   "01/01/2024",
	})
	report := testValidator().Validate(doc)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "date.order", report.Issues[0].Rule)
	assert.Equal(t, SeverityWarning, report.Issues[0].Severity)
}
