// Package language identifies the language of job postings by combining two
// detectors.
package language

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/utils"
)

// Fallback is returned when detection fails.
const Fallback = "ENGLISH"

const defaultTopK = 3

// Prediction is one candidate language with its confidence in 0..1.
// Language is the upper-case English name, e.g. "GERMAN".
type Prediction struct {
	Language   string
	Confidence float64
}

// Detector returns up to k predictions ordered by confidence.
type Detector interface {
	Predict(text string, k int) ([]Prediction, error)
}

// Hybrid combines a trusted detector with an optional secondary one.
type Hybrid struct {
	trusted   Detector
	secondary Detector
	logger    *zap.Logger
}

// NewHybrid builds a Hybrid. secondary may be nil.
func NewHybrid(trusted, secondary Detector, logger *zap.Logger) *Hybrid {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hybrid{trusted: trusted, secondary: secondary, logger: logger}
}

// Detect returns the language of text and a confidence. Empty text yields
// ("", 0); any detector failure yields (Fallback, 0).
func (h *Hybrid) Detect(text string, k int) (string, float64) {
	text = utils.NormalizeSpace(text)
	if text == "" {
		return "", 0
	}
	if k <= 0 {
		k = defaultTopK
	}

	lang, conf, err := h.detect(text, k)
	if err != nil {
		h.logger.Warn("language detection failed, assuming english",
			zap.String("text", utils.TruncateForLog(text, 80)),
			zap.Error(err),
		)
		return Fallback, 0
	}
	return lang, conf
}

func (h *Hybrid) detect(text string, k int) (string, float64, error) {
	if h.trusted == nil {
		return "", 0, errors.New("no language detector configured")
	}
	trusted, err := h.trusted.Predict(text, k)
	if err != nil {
		return "", 0, err
	}
	if len(trusted) == 0 {
		return "", 0, errors.New("trusted detector returned no predictions")
	}

	if h.secondary == nil {
		return trusted[0].Language, trusted[0].Confidence, nil
	}

	secondary, err := h.secondary.Predict(text, k)
	if err != nil || len(secondary) == 0 {
		if err != nil {
			h.logger.Debug("secondary language detector failed", zap.Error(err))
		}
		return trusted[0].Language, trusted[0].Confidence, nil
	}

	if trusted[0].Language == secondary[0].Language {
		return trusted[0].Language, max(trusted[0].Confidence, secondary[0].Confidence), nil
	}

	var best Prediction
	for _, t := range trusted {
		for _, s := range secondary {
			if t.Language != s.Language {
				continue
			}
			if conf := max(t.Confidence, s.Confidence); conf > best.Confidence {
				best = Prediction{Language: t.Language, Confidence: conf}
			}
		}
	}
	if best.Language != "" {
		return best.Language, best.Confidence, nil
	}

	return trusted[0].Language, trusted[0].Confidence, nil
}

// Contains reports whether lang is in langs, ignoring case.
func Contains(langs []string, lang string) bool {
	for _, l := range langs {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}
