// Package validator checks that a chunk translation came back in the target
// language rather than echoing the source.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/chaptertran/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

var ErrEmpty = errors.New("translation is empty")

// target is the only language chunks are translated into.
const target = "en"

// Validator checks that a translation came back in English.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// NewEnglish creates a Validator backed by the lingua-go language detector.
func NewEnglish() *Validator {
	return &Validator{det: detector.New()}
}

// Validate returns nil when text appears to be written in English.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass. When the detected language differs the error
// names both codes.
func (v *Validator) Validate(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmpty
	}

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(text)) < minValidationLength {
		return nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		// Ambiguous language, cannot validate, pass through.
		return nil
	}

	if !strings.EqualFold(detected, target) {
		return fmt.Errorf("expected %s but detected %s", target, strings.ToLower(detected))
	}
	return nil
}
