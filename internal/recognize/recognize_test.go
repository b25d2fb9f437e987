package recognize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvars/extracteur/internal/refdata"
)

func loadTables(t *testing.T) *refdata.Tables {
	t.Helper()
	tables, err := refdata.Load()
	require.NoError(t, err)
	return tables
}

func TestPhoneRecognizer(t *testing.T) {
	tables := loadTables(t)
	r := NewPhoneRecognizer(tables)

	tests := []struct {
		name       string
		text       string
		localeHint string
		wantValue  string
		wantLocale string
	}{
		{
			name:       "french mobile with hint",
			text:       "Tél: 06 12 34 56 78",
			localeHint: "fr",
			wantValue:  "+33612345678",
			wantLocale: "fr",
		},
		{
			name:       "international prefix needs no hint",
			text:       "joignable au +33 6 12 34 56 78",
			wantValue:  "+33612345678",
			wantLocale: "fr",
		},
		{
			name:       "senegal dial code",
			text:       "Portable: +221 77 123 45 67",
			wantValue:  "+221771234567",
			wantLocale: "sn",
		},
		{
			name:       "country mention in context",
			text:       "notre agence au Maroc, tél 05 22 43 21 09",
			wantValue:  "+212522432109",
			wantLocale: "ma",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := r.Recognize(tt.text, tt.localeHint)
			require.NotEmpty(t, cands)
			best := cands[0]
			assert.Equal(t, TypePhone, best.Type)
			assert.Equal(t, tt.wantValue, best.NormalizedValue)
			assert.Equal(t, tt.wantLocale, best.Locale)
			assert.NotEmpty(t, best.RawValue)
			assert.NotEmpty(t, best.Context)
		})
	}
}

func TestPhoneRecognizerLabelledBeatsGeneric(t *testing.T) {
	tables := loadTables(t)
	r := NewPhoneRecognizer(tables)

	cands := r.Recognize("Fax: +33 1 42 68 53 00", "")
	require.NotEmpty(t, cands)
	assert.Equal(t, "phone.label", cands[0].SourcePatternID)
	assert.GreaterOrEqual(t, cands[0].Confidence, baseExplicit)
}

func TestPhoneRecognizerDialCodeWinsOverSharedShape(t *testing.T) {
	tables := loadTables(t)
	r := NewPhoneRecognizer(tables)

	// the 6XX XX XX XX national shape also belongs to Cameroon's numbering
	// plan; an explicit +33 dial code must keep the attribution French
	cands := r.Recognize("joignable au +33 6 12 34 56 78", "")
	require.NotEmpty(t, cands)
	assert.Equal(t, "fr", cands[0].Locale)
	assert.Equal(t, "+33612345678", cands[0].NormalizedValue)
	for _, c := range cands {
		assert.NotEqual(t, "cm", c.Locale, "misattributed %q", c.NormalizedValue)
	}
}

func TestNameRecognizer(t *testing.T) {
	r := NewNameRecognizer()

	tests := []struct {
		name      string
		text      string
		wantValue string
	}{
		{name: "labelled", text: "Nom : DUPONT Jean", wantValue: "Dupont Jean"},
		{name: "civility", text: "représenté par Monsieur Jean Dupont, gérant", wantValue: "Jean Dupont"},
		{name: "particle kept lowercase", text: "Mme Marie de La Tour", wantValue: "Marie de la Tour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := r.Recognize(tt.text, "")
			require.NotEmpty(t, cands)
			assert.Equal(t, tt.wantValue, cands[0].NormalizedValue)
		})
	}
}

func TestAddressRecognizer(t *testing.T) {
	tables := loadTables(t)
	r := NewAddressRecognizer(tables)

	t.Run("french street with postal city", func(t *testing.T) {
		text := "Adresse : 12 rue de la Paix\n75002 Paris\nFrance"
		cands := r.Recognize(text, "")
		require.NotEmpty(t, cands)
		best := cands[0]
		assert.Equal(t, TypeAddress, best.Type)
		assert.Equal(t, "fr", best.Locale)
		assert.Contains(t, best.NormalizedValue, "12 rue de la Paix")
		assert.Contains(t, best.NormalizedValue, "75002 Paris")
	})

	t.Run("po box address", func(t *testing.T) {
		text := "demeurant à Abidjan, BP 1234 Abidjan, Côte d'Ivoire"
		cands := r.Recognize(text, "")
		require.NotEmpty(t, cands)
		best := cands[0]
		assert.Equal(t, "ci", best.Locale)
		assert.Contains(t, best.NormalizedValue, "BP 1234")
	})

	t.Run("postal format inference tunisia", func(t *testing.T) {
		text := "bureau situé 4 avenue Habib Bourguiba, 1001 Tunis"
		cands := r.Recognize(text, "")
		require.NotEmpty(t, cands)
		assert.Equal(t, "tn", cands[0].Locale)
	})
}

func TestIdentifierRecognizer(t *testing.T) {
	tables := loadTables(t)
	r := NewIdentifierRecognizer(tables)

	t.Run("labelled siret with valid checksum outranks", func(t *testing.T) {
		cands := r.Recognize("SIRET: 73282932000074", "")
		require.NotEmpty(t, cands)
		best := cands[0]
		assert.Equal(t, "siret", KindOf(best))
		assert.Equal(t, "73282932000074", best.NormalizedValue)
		assert.Equal(t, "fr", best.Locale)
		assert.GreaterOrEqual(t, best.Confidence, 0.9)
	})

	t.Run("iban mod97", func(t *testing.T) {
		cands := r.Recognize("IBAN: FR14 2004 1010 0505 0001 3M02 606", "")
		require.NotEmpty(t, cands)
		best := cands[0]
		assert.Equal(t, "iban", KindOf(best))
		assert.Equal(t, "FR1420041010050500013M02606", best.NormalizedValue)
	})

	t.Run("cni number", func(t *testing.T) {
		cands := r.Recognize("CARTE NATIONALE D'IDENTITÉ\nN° CNI: 123456789012", "fr")
		require.NotEmpty(t, cands)
		best := cands[0]
		assert.Equal(t, "cni", KindOf(best))
		assert.Equal(t, "123456789012", best.NormalizedValue)
	})
}

func TestDedupe(t *testing.T) {
	t.Run("equal normalized values keep higher confidence", func(t *testing.T) {
		cands := []Candidate{
			{Type: TypePhone, NormalizedValue: "+33612345678", Confidence: 0.9, SourcePatternID: "phone.label"},
			{Type: TypePhone, NormalizedValue: "+33612345678", Confidence: 0.6, SourcePatternID: "phone.generic"},
		}
		out := Dedupe(cands)
		require.Len(t, out, 1)
		assert.Equal(t, "phone.label", out[0].SourcePatternID)
	})

	t.Run("similarity above threshold dedupes", func(t *testing.T) {
		cands := []Candidate{
			{Type: TypeName, NormalizedValue: "Jean Dupont", Confidence: 0.8},
			{Type: TypeName, NormalizedValue: "Jean Dupond", Confidence: 0.7},
		}
		out := Dedupe(cands)
		require.Len(t, out, 1)
		assert.Equal(t, "Jean Dupont", out[0].NormalizedValue)
	})

	t.Run("different types are never merged", func(t *testing.T) {
		cands := []Candidate{
			{Type: TypeName, NormalizedValue: "75002", Confidence: 0.8},
			{Type: TypeIdentifier, NormalizedValue: "75002", Confidence: 0.7},
		}
		assert.Len(t, Dedupe(cands), 2)
	})
}

func TestConfidenceBounds(t *testing.T) {
	tables := loadTables(t)
	set := NewSet(tables, nil)
	text := `Monsieur Jean Dupont, domicilié 12 rue de la Paix, 75002 Paris, France.
Tél: +33 6 12 34 56 78, Fax: 01 42 68 53 00
SIRET: 73282932000074 — IBAN: FR14 2004 1010 0505 0001 3M02 606
N° CNI: 123456789012`
	for _, c := range set.RecognizeAll(text, "fr") {
		assert.GreaterOrEqual(t, c.Confidence, 0.0, "pattern %s", c.SourcePatternID)
		assert.LessOrEqual(t, c.Confidence, 1.0, "pattern %s", c.SourcePatternID)
		assert.NotEmpty(t, c.RawValue)
		assert.NotEmpty(t, c.Context)
	}
}
