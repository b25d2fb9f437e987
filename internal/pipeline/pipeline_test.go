package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvars/extracteur/internal/common"
)

func testConfig() *common.Config {
	return &common.Config{
		Pipeline: common.PipelineConfig{
			DefaultLocale:   "fr",
			MinConfidence:   0.3,
			DocumentTimeout: 5 * time.Second,
		},
		Batch: common.BatchConfig{Workers: 2, QueueSize: 8},
		Anonymize: common.AnonymizeConfig{
			Enabled: false, Strategy: "mask", Categories: []string{"ids", "banking", "phone"},
		},
	}
}

func testPipeline(t *testing.T, cfg *common.Config) *Pipeline {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	p, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

func TestAnalyzeInvoice(t *testing.T) {
	p := testPipeline(t, nil)
	text := "FACTURE N° F2024-001\n" +
		"SIRET: 123 456 789 00012\n" +
		"Date : 15/03/2024\n" +
		"Total HT : 100,00 €\n" +
		"TVA (20%) : 20,00 €\n" +
		"Total TTC : 120,00 €\n"

	res := p.Analyze(context.Background(), Input{Text: text, FilePath: "facture.txt"})

	require.Nil(t, res.Error)
	assert.Equal(t, "facture", res.Variables["type_document"])
	assert.Equal(t, "F2024-001", res.Variables["numero_document"])
	assert.Equal(t, "EUR", res.Variables["devise"])
	assert.Equal(t, 100.0, res.Variables["montant_ht"])
	assert.Equal(t, "2024-03-15", res.Variables["date_emission"])
	// this siret fails the luhn check, so validation drops it
	assert.NotContains(t, res.Variables, "siret")
	require.NotNil(t, res.Report)
	assert.Contains(t, res.Report.Dropped, "siret")
	require.NotNil(t, res.Structure)
	assert.Equal(t, "facture", res.Structure.DocumentType)
	require.NotNil(t, res.BusinessData)
	assert.Equal(t, "facture", res.BusinessData["business_type"])
}

func TestAnalyzePersonalLetter(t *testing.T) {
	p := testPipeline(t, nil)
	text := "Madame, Monsieur,\n\n" +
		"Je soussigné Monsieur Jean Dupont, né le 15/04/80 à Lyon,\n" +
		"demeurant 12 rue de la République, 69001 Lyon, France.\n" +
		"Tél : 06 12 34 56 78\n" +
		"Email : jean.dupont@example.fr\n"

	res := p.Analyze(context.Background(), Input{Text: text, FilePath: "lettre.txt", LocaleHint: "fr"})

	require.Nil(t, res.Error)
	// two-digit year resolved by the pivot, then converted to ISO
	assert.Equal(t, "1980-04-15", res.Variables["date_naissance"])
	assert.Equal(t, "+33612345678", res.Variables["telephone"])
	assert.Equal(t, "jean.dupont@example.fr", res.Variables["email"])
	assert.Equal(t, "fr", res.Variables["langue"])
}

func TestAnalyzeRejectsJSONInput(t *testing.T) {
	p := testPipeline(t, nil)

	res := p.Analyze(context.Background(), Input{Text: `{"text": "FACTURE"}`})
	require.NotNil(t, res.Error)
	assert.Equal(t, common.CodeUnsupportedInput, res.Error.Code)
	assert.Nil(t, res.Variables)
}

func TestAnalyzeRejectsEmptyText(t *testing.T) {
	p := testPipeline(t, nil)

	for _, text := range []string{"", "   \n\t  "} {
		res := p.Analyze(context.Background(), Input{Text: text})
		require.NotNil(t, res.Error)
		assert.Equal(t, common.CodeEmptyText, res.Error.Code)
	}
}

func TestAnalyzeBraceProseIsNotRejected(t *testing.T) {
	p := testPipeline(t, nil)

	// a leading brace without a quote is prose, not a serialized object
	res := p.Analyze(context.Background(), Input{Text: "{voir annexe} Le contrat prend effet."})
	assert.Nil(t, res.Error)
}

func TestAnalyzeTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.DocumentTimeout = time.Nanosecond
	p := testPipeline(t, cfg)

	text := strings.Repeat("Le contrat de travail entre l'employeur et le salarié. ", 5000)
	res := p.Analyze(context.Background(), Input{Text: text})

	require.NotNil(t, res.Error)
	assert.Equal(t, common.CodeExtractorFailure, res.Error.Code)
}

func TestAnalyzeDiscardsInvalidNERPayload(t *testing.T) {
	p := testPipeline(t, nil)

	res := p.Analyze(context.Background(), Input{
		Text:        "Attestation sur l'honneur.",
		RawEntities: []byte(`[{"label": "NOPE"}]`),
	})
	assert.Nil(t, res.Error, "a bad collaborator payload must not fail the analysis")
}

func TestAnalyzeAnonymizesWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Anonymize.Enabled = true
	p := testPipeline(t, cfg)

	res := p.Analyze(context.Background(), Input{Text: "Tél : 06 12 34 56 78", LocaleHint: "fr"})

	require.Nil(t, res.Error)
	tel, ok := res.Variables["telephone"].(string)
	require.True(t, ok)
	assert.NotEqual(t, "+33612345678", tel)
	assert.Contains(t, tel, "*")
}

func TestQueueProcessesAllJobs(t *testing.T) {
	p := testPipeline(t, nil)

	var mu sync.Mutex
	results := map[string]*Result{}
	handler := func(jobID string, res *Result) {
		mu.Lock()
		defer mu.Unlock()
		results[jobID] = res
	}

	q := NewQueue(p, handler, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithWorkers(2), WithQueueSize(4), WithProcessTimeout(10*time.Second))

	var ids []string
	for _, text := range []string{"FACTURE N° A-1", "DEVIS N° D-2", ""} {
		id, err := q.Enqueue(context.Background(), Input{Text: text})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 3)
	for _, id := range ids {
		require.Contains(t, results, id)
	}
	// the empty document surfaces as a per-job error, not a queue failure
	assert.NotNil(t, results[ids[2]].Error)
	assert.Nil(t, results[ids[0]].Error)
}

func TestQueueEnqueueAfterShutdown(t *testing.T) {
	p := testPipeline(t, nil)
	q := NewQueue(p, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), WithWorkers(1))

	ctx := context.Background()
	q.Shutdown(ctx)

	_, err := q.Enqueue(ctx, Input{Text: "FACTURE"})
	assert.Error(t, err)
}
