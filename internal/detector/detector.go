// Package detector identifies the language of a text sample with lingua-go.
package detector

import (
	lingua "github.com/pemistahl/lingua-go"
)

// languages restricts detection to what a Chinese→English workflow meets.
// A smaller candidate set is faster to build and less prone to confusing
// short English fragments with other Latin-script languages.
var languages = []lingua.Language{
	lingua.Chinese,
	lingua.English,
	lingua.Japanese,
	lingua.Korean,
}

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// IsChinese reports whether text is detected as Chinese.
func (d *Detector) IsChinese(text string) bool {
	lang, ok := d.Detect(text)
	return ok && lang == lingua.Chinese
}
