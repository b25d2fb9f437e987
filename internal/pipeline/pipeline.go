// Package pipeline wires the analysis stages: normalization, structure
// analysis, recognition, extraction, aggregation, validation and optional
// anonymization. Analyze never returns a Go error; failures are carried in
// the result's error field so a batch keeps moving.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docvars/extracteur/internal/aggregate"
	"github.com/docvars/extracteur/internal/anonymize"
	"github.com/docvars/extracteur/internal/common"
	"github.com/docvars/extracteur/internal/extract"
	"github.com/docvars/extracteur/internal/normalize"
	"github.com/docvars/extracteur/internal/recognize"
	"github.com/docvars/extracteur/internal/refdata"
	"github.com/docvars/extracteur/internal/structure"
	"github.com/docvars/extracteur/internal/validate"
)

// Input is one document to analyze. RawEntities is the optional NER
// collaborator payload; an invalid payload is discarded, not fatal.
type Input struct {
	Text        string
	FilePath    string
	LocaleHint  string
	RawEntities []byte
	Image       *extract.ImageMeta
}

// ErrorInfo is the serialized failure of one document.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the output contract for one document. Variables is always
// non-nil on success; Error is set instead when the input was rejected.
type Result struct {
	FilePath     string               `json:"file_path,omitempty"`
	Text         string               `json:"text,omitempty"`
	Variables    map[string]any       `json:"variables,omitempty"`
	PersonalData map[string]any       `json:"personal_data,omitempty"`
	LegalData    map[string]any       `json:"legal_data,omitempty"`
	IdentityData map[string]any       `json:"identity_data,omitempty"`
	ContractData map[string]any       `json:"contract_data,omitempty"`
	BusinessData map[string]any       `json:"business_data,omitempty"`
	Structure    *structure.Structure `json:"structure,omitempty"`
	Report       *validate.Report     `json:"validation,omitempty"`
	Error        *ErrorInfo           `json:"error,omitempty"`
}

// Pipeline holds every stage, constructed once and reused across documents.
type Pipeline struct {
	cfg         *common.Config
	tables      *refdata.Tables
	analyzer    *structure.Analyzer
	recognizers *recognize.Set
	extractors  *extract.Set
	aggregator  *aggregate.Aggregator
	validator   *validate.Validator
	anonymizer  *anonymize.Anonymizer
	logger      *slog.Logger
}

func New(cfg *common.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = common.LoadConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tables, err := refdata.Load()
	if err != nil {
		return nil, common.WrapError(err, "loading reference tables")
	}
	return &Pipeline{
		cfg:         cfg,
		tables:      tables,
		analyzer:    &structure.Analyzer{},
		recognizers: recognize.NewSet(tables, logger),
		extractors: extract.NewSet(logger,
			extract.NewPersonalDataExtractor(),
			extract.NewLegalDocsExtractor(),
			extract.NewIdentityDocExtractor(tables),
			extract.NewContractExtractor(),
			extract.NewBusinessDocExtractor(tables),
		),
		aggregator: aggregate.NewAggregator(logger),
		validator:  validate.NewValidator(logger),
		anonymizer: anonymize.NewAnonymizer(cfg.Anonymize, logger),
		logger:     logger,
	}, nil
}

// Analyze runs the whole pipeline on one input under the configured document
// timeout. It never returns an error: rejection, timeout and panic all
// become a Result with the error field set.
func (p *Pipeline) Analyze(ctx context.Context, input Input) *Result {
	start := time.Now()
	p.logger.Info("analyze.start", "file_path", input.FilePath)

	if res := p.reject(input); res != nil {
		p.logger.Warn("analyze.rejected", "file_path", input.FilePath, "code", res.Error.Code)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.DocumentTimeout)
	defer cancel()

	done := make(chan *Result, 1)
	go func() {
		done <- p.run(input)
	}()

	select {
	case res := <-done:
		p.logger.Info("analyze.done", "file_path", input.FilePath,
			"variables", len(res.Variables), "duration", time.Since(start))
		return res
	case <-ctx.Done():
		p.logger.Error("analyze.timeout", "file_path", input.FilePath, "timeout", p.cfg.Pipeline.DocumentTimeout)
		return &Result{
			FilePath: input.FilePath,
			Error:    &ErrorInfo{Code: common.CodeExtractorFailure, Message: "analysis timed out"},
		}
	}
}

// reject applies the input contract: structured payloads and empty text are
// refused before any stage runs.
func (p *Pipeline) reject(input Input) *Result {
	trimmed := strings.TrimSpace(input.Text)
	if trimmed == "" {
		appErr := common.NewEmptyTextError("document contains no text")
		return &Result{FilePath: input.FilePath, Error: errorInfo(appErr)}
	}
	// a leading {" is a serialized object, not document prose
	if strings.HasPrefix(trimmed, "{") {
		rest := strings.TrimSpace(trimmed[1:])
		if strings.HasPrefix(rest, `"`) {
			appErr := common.NewUnsupportedInputError("input looks like serialized JSON, not text")
			return &Result{FilePath: input.FilePath, Error: errorInfo(appErr)}
		}
	}
	return nil
}

func (p *Pipeline) run(input Input) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("analyze.panic", "file_path", input.FilePath, "panic", fmt.Sprint(r))
			res = &Result{
				FilePath: input.FilePath,
				Error:    &ErrorInfo{Code: common.CodeExtractorFailure, Message: fmt.Sprintf("pipeline panicked: %v", r)},
			}
		}
	}()

	// the raw hint, not the defaulted one: an unhinted document keeps the
	// country-mention guard on the +33 phone rewrite
	text := normalize.Preprocess(normalize.Clean(input.Text), input.LocaleHint)
	st := p.analyzer.Analyze(text)

	hint := input.LocaleHint
	if hint == "" {
		hint = p.cfg.Pipeline.DefaultLocale
	}

	candidates := recognize.Dedupe(p.recognizers.RecognizeAll(text, hint))
	candidates = p.filterConfidence(candidates)

	entities := p.parseEntities(input)

	doc := &extract.Document{
		Text:       text,
		SourcePath: input.FilePath,
		LocaleHint: hint,
		Structure:  st,
		Candidates: candidates,
		Entities:   entities,
		Image:      input.Image,
	}
	groups := p.extractors.ExtractAll(doc)

	agg := p.aggregator.Aggregate(doc, groups)
	report := p.validator.Validate(agg)
	agg = p.anonymizer.Anonymize(agg)

	return &Result{
		FilePath:     input.FilePath,
		Text:         text,
		Variables:    agg.Variables,
		PersonalData: agg.Sections[string(extract.KindPersonal)],
		LegalData:    agg.Sections[string(extract.KindLegal)],
		IdentityData: agg.Sections[string(extract.KindIdentity)],
		ContractData: agg.Sections[string(extract.KindContract)],
		BusinessData: agg.Sections[string(extract.KindBusiness)],
		Structure:    st,
		Report:       report,
	}
}

func (p *Pipeline) filterConfidence(cands []recognize.Candidate) []recognize.Candidate {
	min := p.cfg.Pipeline.MinConfidence
	if min <= 0 {
		return cands
	}
	kept := cands[:0]
	for _, c := range cands {
		if c.Confidence >= min {
			kept = append(kept, c)
		}
	}
	return kept
}

// parseEntities validates the collaborator payload; a bad payload is logged
// and dropped so the extractors run regex-only.
func (p *Pipeline) parseEntities(input Input) []extract.Entity {
	if len(input.RawEntities) == 0 {
		return nil
	}
	entities, err := extract.ParseEntities(input.RawEntities)
	if err != nil {
		p.logger.Warn("analyze.ner_discarded", "file_path", input.FilePath, "error", err)
		return nil
	}
	return entities
}

func errorInfo(err *common.AppError) *ErrorInfo {
	return &ErrorInfo{Code: err.Code, Message: err.Message}
}
