package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty input", in: "", want: ""},
		{name: "crlf to lf", in: "ligne 1\r\nligne 2", want: "ligne 1\nligne 2"},
		{
			name: "control characters stripped, newline and tab kept",
			in:   "a\x00b\x07c\td\ne",
			want: "abc\td\ne",
		},
		{
			name: "whitespace runs collapsed",
			in:   "Nom    :     Dupont",
			want: "Nom : Dupont",
		},
		{
			name: "blank lines capped at one",
			in:   "titre\n\n\n\n\ncorps",
			want: "titre\n\ncorps",
		},
		{
			name: "digit context confusion l fixed",
			in:   "Montant: 1l5 EUR",
			want: "Montant: 115 EUR",
		},
		{
			name: "digit context confusion O fixed",
			in:   "N° 4O2",
			want: "N° 402",
		},
		{
			name: "word confusion rn fixed with case kept",
			in:   "Rnonsieur Dupont, norn de famille",
			want: "Monsieur Dupont, nom de famille",
		},
		{
			name: "legitimate rn words untouched",
			in:   "la journée moderne",
			want: "la journée moderne",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Monsieur   Dupont\r\n\r\n\r\nParis",
		"Montant: 1l5 €\tTVA",
		"FACTURE N° F2024-001\nSIRET: 123 456 789 00012",
		"texte déjà propre\navec accents é à ü",
	}
	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "Clean must be idempotent for %q", in)
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		locale string
		want   string
	}{
		{name: "empty input", in: "", want: ""},
		{
			name: "four digit year date",
			in:   "signé le 15/04/1980 à Paris",
			want: "signé le 15/04/1980 à Paris",
		},
		{
			name: "two digit year below pivot maps to 2000s",
			in:   "le 03/02/15",
			want: "le 03/02/2015",
		},
		{
			name: "two digit year above pivot maps to 1900s",
			in:   "né le 15/04/80",
			want: "né le 15/04/1980",
		},
		{
			name: "dashed and dotted dates reshaped",
			in:   "du 1-2-2020 au 28.02.2020",
			want: "du 01/02/2020 au 28/02/2020",
		},
		{
			name: "french month name rewritten",
			in:   "fait le 12 avril 2023",
			want: "fait le 12/04/2023",
		},
		{
			name: "premier of month rewritten",
			in:   "à compter du 1er janvier 2024",
			want: "à compter du 01/01/2024",
		},
		{
			name: "french phone to international shape",
			in:   "Tél: 06 12 34 56 78",
			want: "Tél: +33612345678",
		},
		{
			name:   "maghreb hint leaves national numbers alone",
			in:     "Tél: 05 22 43 21 09",
			locale: "ma",
			want:   "Tél: 05 22 43 21 09",
		},
		{
			name: "country mention blocks the rewrite without a hint",
			in:   "notre agence de Casablanca, tél 05 22 43 21 09",
			want: "notre agence de Casablanca, tél 05 22 43 21 09",
		},
		{
			name: "grouped amount joined before currency",
			in:   "Total: 1 234 567,89 €",
			want: "Total: 1234567,89 €",
		},
		{
			name: "grouped amount joined before currency word",
			in:   "soit 12 500,00 euros TTC",
			want: "soit 12500,00 euros TTC",
		},
		{
			name: "grouped amount joined after leading euro sign",
			in:   "montant dû : € 1 234,50",
			want: "montant dû : € 1234,50",
		},
		{
			name: "siret despaced with label kept",
			in:   "SIRET: 123 456 789 00012",
			want: "SIRET: 12345678900012",
		},
		{
			name: "tva intra despaced",
			in:   "TVA intracommunautaire: FR 12 345 678 901",
			want: "TVA intracommunautaire: FR12345678901",
		},
		{
			name: "page artifacts removed",
			in:   "Page 3 / 12\ncontenu\n- 4 -\nsuite",
			want: "contenu\nsuite",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preprocess(tt.in, tt.locale))
		})
	}
}

func TestPreprocessIdempotentOnCleanInput(t *testing.T) {
	inputs := []string{
		"né le 15/04/80, Tél: 06 12 34 56 78",
		"Total: 1 234,50 € le 12 avril 2023",
		"SIRET: 123 456 789 00012\nTVA intra: FR 12 345 678 901",
	}
	for _, in := range inputs {
		once := Preprocess(Clean(in), "fr")
		assert.Equal(t, once, Preprocess(once, "fr"), "Preprocess must be idempotent for %q", in)
	}
}
