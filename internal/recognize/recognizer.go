package recognize

import (
	"log/slog"

	"github.com/docvars/extracteur/internal/refdata"
)

// Recognizer is the capability shared by the four value-type detectors.
// A malformed or unsupported locale hint silently falls back to the generic
// patterns; a recognizer never returns an error.
type Recognizer interface {
	Recognize(text string, localeHint string) []Candidate
}

// Set bundles the four recognizers over one shared reference table set.
type Set struct {
	Phone      *PhoneRecognizer
	Name       *NameRecognizer
	Address    *AddressRecognizer
	Identifier *IdentifierRecognizer

	logger *slog.Logger
}

func NewSet(tables *refdata.Tables, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{
		Phone:      NewPhoneRecognizer(tables),
		Name:       NewNameRecognizer(),
		Address:    NewAddressRecognizer(tables),
		Identifier: NewIdentifierRecognizer(tables),
		logger:     logger,
	}
}

// RecognizeAll runs every recognizer and returns the merged, deduplicated
// candidate list.
func (s *Set) RecognizeAll(text, localeHint string) []Candidate {
	var all []Candidate
	for _, r := range []Recognizer{s.Phone, s.Name, s.Address, s.Identifier} {
		all = append(all, r.Recognize(text, localeHint)...)
	}
	s.logger.Debug("recognize.all", "candidates", len(all), "locale_hint", localeHint)
	return all
}
