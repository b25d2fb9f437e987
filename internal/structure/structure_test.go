package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContract = `CONTRAT DE PRESTATION DE SERVICES

Entre les soussignés, la société Alpha SARL et Monsieur Jean Dupont,
il est convenu ce qui suit.

Article 1 - Objet
Le prestataire s'engage à fournir les prestations décrites ci-dessous.

Article 2 - Durée
Le présent contrat est conclu pour une durée de douze mois.

Article 3 - Résiliation
Chaque partie peut résilier le contrat avec un préavis d'un mois.

Fait à Paris, le 12/04/2023
Signature du prestataire`

func TestAnalyzeContract(t *testing.T) {
	a := NewAnalyzer()
	s := a.Analyze(sampleContract)
	require.NotNil(t, s)

	assert.Equal(t, "CONTRAT DE PRESTATION DE SERVICES", s.Title)
	assert.Equal(t, "contrat", s.DocumentType)
	assert.Equal(t, "fr", s.Language)

	assert.Contains(t, s.Headings, "Article 1 - Objet")
	assert.Contains(t, s.Headings, "Article 2 - Durée")

	assert.NotEmpty(t, s.Signature, "signature block should be detected")
	assert.Contains(t, strings.ToLower(s.Signature), "signature")
	assert.NotEmpty(t, s.Header)
	assert.NotEmpty(t, s.Body)
}

func TestAnalyzeEmpty(t *testing.T) {
	s := NewAnalyzer().Analyze("   \n  ")
	require.NotNil(t, s)
	assert.Equal(t, "fr", s.Language)
	assert.Equal(t, "document_general", s.DocumentType)
	assert.Empty(t, s.Tables)
}

func TestDetectTables(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantCount int
		wantRows  int
	}{
		{
			name: "pipe delimited",
			text: "Désignation | Quantité | Prix\nStylo | 10 | 2,50\nCahier | 5 | 3,00",
			wantCount: 1,
			wantRows:  3,
		},
		{
			name: "space aligned",
			text: "Désignation      Quantité      Prix\nStylo            10            2,50",
			wantCount: 1,
			wantRows:  2,
		},
		{
			name:      "single row is not a table",
			text:      "Désignation | Quantité | Prix\nrien d'autre ici",
			wantCount: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := detectTables(strings.Split(tt.text, "\n"))
			require.Len(t, tables, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Len(t, tables[0], tt.wantRows)
			}
		})
	}
}

func TestDetectFormFields(t *testing.T) {
	lines := []string{
		"Nom : Dupont",
		"Prénom : ______",
		"Adresse : 12 rue de la Paix",
		"texte libre sans deux-points",
	}
	fields := detectFormFields(lines)
	assert.Equal(t, "Dupont", fields["Nom"])
	assert.Equal(t, "", fields["Prénom"])
	assert.Equal(t, "12 rue de la Paix", fields["Adresse"])
	assert.NotContains(t, fields, "texte libre sans deux-points")
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "french document",
			text: "le contrat est conclu entre les parties pour une durée de douze mois dans les conditions décrites",
			want: "fr",
		},
		{
			name: "english document",
			text: "this agreement is made between the parties and shall remain in force for the duration set out in the schedule",
			want: "en",
		},
		{
			name: "too short defaults to french",
			text: "hello world",
			want: "fr",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectLanguage(tt.text))
		})
	}
}

func TestClassifyDocumentType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "facture", text: "FACTURE N° 2024-001 montant TTC 120,00 TVA 20% règlement à échéance", want: "facture"},
		{name: "devis", text: "DEVIS N° 42 cette offre et estimation reste valable 30 jours, validité un mois, devis gratuit", want: "devis"},
		{name: "attestation", text: "ATTESTATION: je soussigné certifie et atteste que les faits rapportés font foi", want: "attestation"},
		{name: "unknown", text: "quelques mots sans signal particulier", want: "document_general"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDocumentType(tt.text, nil, false))
		})
	}
}

func TestTopKeywords(t *testing.T) {
	text := "prestation prestation prestation contrat contrat durée durée durée durée"
	kws := topKeywords(text, 3)
	require.NotEmpty(t, kws)
	assert.Equal(t, "durée", kws[0])
	assert.LessOrEqual(t, len(kws), 3)
}
