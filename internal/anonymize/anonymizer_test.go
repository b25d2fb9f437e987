package anonymize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvars/extracteur/internal/aggregate"
	"github.com/docvars/extracteur/internal/common"
)

func testAnonymizer(cfg common.AnonymizeConfig) *Anonymizer {
	return NewAnonymizer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sampleDoc() *aggregate.AggregatedDocument {
	return &aggregate.AggregatedDocument{
		FilePath: "contrat.txt",
		Variables: map[string]any{
			"nom":       "Dupont",
			"telephone": "+33612345678",
			"iban":      "FR14 2004 1010 0505 0001 3M02 606",
			"montant":   1200.0,
		},
		Sections: map[string]map[string]any{
			"personal_data": {
				"banking": map[string]any{"iban": "FR1420041010050500013M02606"},
			},
		},
	}
}

func TestAnonymizeMaskPreservesSeparators(t *testing.T) {
	a := testAnonymizer(common.AnonymizeConfig{
		Enabled: true, Strategy: StrategyMask, Categories: []string{"banking", "phone"},
	})
	out := a.Anonymize(sampleDoc())

	assert.Equal(t, "**** **** **** **** **** **** *06", out.Variables["iban"])
	assert.Equal(t, "+*********78", out.Variables["telephone"])
	// uncovered categories pass through
	assert.Equal(t, "Dupont", out.Variables["nom"])
	assert.Equal(t, 1200.0, out.Variables["montant"])
}

func TestAnonymizePseudonymStable(t *testing.T) {
	cfg := common.AnonymizeConfig{
		Enabled: true, Strategy: StrategyPseudonym, Categories: []string{"names"}, Salt: "s1",
	}
	first := testAnonymizer(cfg).Anonymize(sampleDoc())
	second := testAnonymizer(cfg).Anonymize(sampleDoc())

	nom := first.Variables["nom"].(string)
	assert.True(t, len(nom) > 5 && nom[:5] == "anon_")
	assert.Equal(t, nom, second.Variables["nom"], "same value and salt must map to the same pseudonym")

	cfg.Salt = "s2"
	other := testAnonymizer(cfg).Anonymize(sampleDoc())
	assert.NotEqual(t, nom, other.Variables["nom"], "a different salt must change the pseudonym")
}

func TestAnonymizeRedact(t *testing.T) {
	a := testAnonymizer(common.AnonymizeConfig{
		Enabled: true, Strategy: StrategyRedact, Categories: []string{"ids", "banking"},
	})
	doc := sampleDoc()
	doc.Variables["numero_cni"] = "123456789012"
	out := a.Anonymize(doc)

	assert.Equal(t, redactedPlaceholder, out.Variables["numero_cni"])
	assert.Equal(t, redactedPlaceholder, out.Variables["iban"])
}

func TestAnonymizeNeverMutatesInput(t *testing.T) {
	a := testAnonymizer(common.AnonymizeConfig{
		Enabled: true, Strategy: StrategyMask, Categories: []string{"banking", "names", "phone"},
	})
	doc := sampleDoc()
	out := a.Anonymize(doc)

	require.NotSame(t, doc, out)
	assert.Equal(t, "Dupont", doc.Variables["nom"])
	assert.Equal(t, "FR14 2004 1010 0505 0001 3M02 606", doc.Variables["iban"])
	banking := doc.Sections["personal_data"]["banking"].(map[string]any)
	assert.Equal(t, "FR1420041010050500013M02606", banking["iban"])

	outBanking := out.Sections["personal_data"]["banking"].(map[string]any)
	assert.NotEqual(t, banking["iban"], outBanking["iban"])
}

func TestAnonymizeDisabledCopiesOnly(t *testing.T) {
	a := testAnonymizer(common.AnonymizeConfig{Enabled: false, Strategy: StrategyMask, Categories: []string{"names"}})
	doc := sampleDoc()
	out := a.Anonymize(doc)

	assert.Equal(t, doc.Variables, out.Variables)
	out.Variables["nom"] = "changed"
	assert.Equal(t, "Dupont", doc.Variables["nom"], "the copy must be independent")
}
