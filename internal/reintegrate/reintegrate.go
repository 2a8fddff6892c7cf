// Package reintegrate writes validated translated fragments back onto a
// page's original fragment objects. Pairing is positional: response entry i
// belongs to original fragment i, which is why the request builder guarantees
// stable ordering end-to-end.
package reintegrate

import (
	"fmt"

	"github.com/valpere/storitran/internal/aligner"
	"github.com/valpere/storitran/internal/docengine"
)

// LengthError reports a response fragment list whose length differs from the
// page's original fragment list. The LLM dropped or invented entries; no
// fragment is mutated.
type LengthError struct {
	Want int
	Got  int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("fragment count mismatch: page has %d fragments, response has %d", e.Want, e.Got)
}

// MismatchError reports a pair whose claimed original text differs from the
// page's actual fragment text. The LLM reordered, dropped or hallucinated a
// fragment; its alignment is untrustworthy for the whole page and no fragment
// is mutated.
type MismatchError struct {
	Index int
	Want  string
	Got   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("fragment %d mismatch: page has %q, response claims %q", e.Index, e.Want, e.Got)
}

// Reintegrate replaces each original fragment's text with its aligned
// translation. All pairs are validated before any mutation, so a failed call
// leaves every fragment untouched. Only the text is replaced; position and
// layout attributes are preserved.
func Reintegrate(fragments []*docengine.Fragment, aligned []aligner.AlignedFragment) error {
	if len(aligned) != len(fragments) {
		return &LengthError{Want: len(fragments), Got: len(aligned)}
	}

	for i, frag := range fragments {
		if frag.Text != aligned[i].OriginalTextFragment {
			return &MismatchError{Index: i, Want: frag.Text, Got: aligned[i].OriginalTextFragment}
		}
	}

	for i, frag := range fragments {
		frag.Text = aligned[i].TranslatedTextFragment
	}
	return nil
}
