// Package detector wraps lingua-go language detection. It backs both the
// "auto" source-language option and the post-translation language check.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the uppercase ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// DetectCode returns the lowercase ISO 639-1 code, the form used in
// translation requests and configuration.
func (d *Detector) DetectCode(text string) (string, bool) {
	code, ok := d.DetectISO(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(code), true
}
