package langcheck

import (
	"github.com/pemistahl/lingua-go"

	"github.com/clearweb/clearweb/models"
)

// Lingua is a Checker backed by the lingua-go statistical detector,
// restricted to the supported language set. Heavier to construct than the
// heuristic but tolerant of outputs that dodge the marker-word lists.
type Lingua struct {
	detector lingua.LanguageDetector
}

var linguaLanguages = map[string]lingua.Language{
	models.LangEnglish: lingua.English,
	models.LangChinese: lingua.Chinese,
	models.LangMalay:   lingua.Malay,
	models.LangTamil:   lingua.Tamil,
}

// NewLingua builds the detector once; reuse the value, construction loads
// language models.
func NewLingua() *Lingua {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Chinese, lingua.Malay, lingua.Tamil).
		Build()
	return &Lingua{detector: detector}
}

func (l *Lingua) Check(lang, text string) bool {
	if lang == models.LangEnglish {
		return true
	}
	want, ok := linguaLanguages[lang]
	if !ok {
		return true
	}
	detected, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return false
	}
	return detected == want
}
