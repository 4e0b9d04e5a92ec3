package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/pemistahl/lingua-go"
)

// Lingua adapts lingua-go.
type Lingua struct {
	detector lingua.LanguageDetector
}

// NewLingua loads models for all languages. Construction is expensive; build
// one per process.
func NewLingua() *Lingua {
	return &Lingua{detector: lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build()}
}

func (l *Lingua) Predict(text string, k int) ([]Prediction, error) {
	values := l.detector.ComputeLanguageConfidenceValues(text)
	out := make([]Prediction, 0, k)
	for _, v := range values {
		if len(out) == k {
			break
		}
		out = append(out, Prediction{
			Language:   strings.ToUpper(v.Language().String()),
			Confidence: v.Value(),
		})
	}
	return out, nil
}

// Whatlang adapts whatlanggo. It yields a single prediction.
type Whatlang struct{}

func (Whatlang) Predict(text string, _ int) ([]Prediction, error) {
	info := whatlanggo.Detect(text)
	name, ok := isoNames[info.Lang.Iso6391()]
	if !ok {
		name = "UNKNOWN"
	}
	return []Prediction{{Language: name, Confidence: info.Confidence}}, nil
}

var isoNames = map[string]string{
	"en": "ENGLISH",
	"de": "GERMAN",
	"fr": "FRENCH",
	"es": "SPANISH",
	"pt": "PORTUGUESE",
	"it": "ITALIAN",
	"nl": "DUTCH",
	"pl": "POLISH",
	"ru": "RUSSIAN",
	"uk": "UKRAINIAN",
	"ja": "JAPANESE",
	"zh": "CHINESE",
	"ko": "KOREAN",
	"sv": "SWEDISH",
	"da": "DANISH",
	"fi": "FINNISH",
	"cs": "CZECH",
	"tr": "TURKISH",
	"ar": "ARABIC",
	"hi": "HINDI",
}
