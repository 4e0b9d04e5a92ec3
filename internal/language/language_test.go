package language

import (
	"errors"
	"testing"
)

type fakeDetector struct {
	predictions []Prediction
	err         error
}

func (f fakeDetector) Predict(string, int) ([]Prediction, error) {
	return f.predictions, f.err
}

func TestHybridDetect(t *testing.T) {
	t.Parallel()

	german := Prediction{Language: "GERMAN", Confidence: 0.7}
	dutch := Prediction{Language: "DUTCH", Confidence: 0.2}
	english := Prediction{Language: "ENGLISH", Confidence: 0.1}

	cases := []struct {
		name      string
		text      string
		trusted   Detector
		secondary Detector
		wantLang  string
		wantConf  float64
	}{
		{
			name:     "empty text",
			text:     "   ",
			trusted:  fakeDetector{predictions: []Prediction{german}},
			wantLang: "",
			wantConf: 0,
		},
		{
			name:     "trusted only",
			text:     "Wir suchen",
			trusted:  fakeDetector{predictions: []Prediction{german, dutch}},
			wantLang: "GERMAN",
			wantConf: 0.7,
		},
		{
			name:      "top agreement takes max confidence",
			text:      "Wir suchen",
			trusted:   fakeDetector{predictions: []Prediction{german}},
			secondary: fakeDetector{predictions: []Prediction{{Language: "GERMAN", Confidence: 0.9}}},
			wantLang:  "GERMAN",
			wantConf:  0.9,
		},
		{
			name:      "common language in top k",
			text:      "Wij zoeken",
			trusted:   fakeDetector{predictions: []Prediction{german, dutch, english}},
			secondary: fakeDetector{predictions: []Prediction{{Language: "DUTCH", Confidence: 0.6}}},
			wantLang:  "DUTCH",
			wantConf:  0.6,
		},
		{
			name:      "no overlap falls back to trusted",
			text:      "Wir suchen",
			trusted:   fakeDetector{predictions: []Prediction{german, dutch}},
			secondary: fakeDetector{predictions: []Prediction{{Language: "UNKNOWN", Confidence: 0}}},
			wantLang:  "GERMAN",
			wantConf:  0.7,
		},
		{
			name:      "secondary failure ignored",
			text:      "Wir suchen",
			trusted:   fakeDetector{predictions: []Prediction{german}},
			secondary: fakeDetector{err: errors.New("boom")},
			wantLang:  "GERMAN",
			wantConf:  0.7,
		},
		{
			name:     "trusted failure",
			text:     "Wir suchen",
			trusted:  fakeDetector{err: errors.New("boom")},
			wantLang: Fallback,
			wantConf: 0,
		},
		{
			name:     "trusted empty",
			text:     "Wir suchen",
			trusted:  fakeDetector{},
			wantLang: Fallback,
			wantConf: 0,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := NewHybrid(tc.trusted, tc.secondary, nil)
			lang, conf := h.Detect(tc.text, 3)
			if lang != tc.wantLang || conf != tc.wantConf {
				t.Fatalf("Detect() = (%q, %v), want (%q, %v)", lang, conf, tc.wantLang, tc.wantConf)
			}
		})
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	if !Contains([]string{"English", "GERMAN"}, "german") {
		t.Fatalf("expected case-insensitive match")
	}
	if Contains([]string{"English"}, "FRENCH") {
		t.Fatalf("unexpected match")
	}
}

func TestWhatlangUnknownScript(t *testing.T) {
	t.Parallel()

	preds, err := Whatlang{}.Predict("12345 67890", 3)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("expected a single prediction, got %d", len(preds))
	}
}
