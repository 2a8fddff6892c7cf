package reintegrate

import (
	"errors"
	"testing"

	"github.com/valpere/storitran/internal/aligner"
	"github.com/valpere/storitran/internal/docengine"
)

func fragments(texts ...string) []*docengine.Fragment {
	out := make([]*docengine.Fragment, len(texts))
	for i, t := range texts {
		out[i] = &docengine.Fragment{Text: t, X: float64(i), Font: "Times"}
	}
	return out
}

func TestReintegrate_Success(t *testing.T) {
	frags := fragments("Hello", "world")
	aligned := []aligner.AlignedFragment{
		{OriginalTextFragment: "Hello", TranslatedTextFragment: "Привіт"},
		{OriginalTextFragment: "world", TranslatedTextFragment: "світе"},
	}

	if err := Reintegrate(frags, aligned); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frags[0].Text != "Привіт" || frags[1].Text != "світе" {
		t.Errorf("fragments not replaced: %q, %q", frags[0].Text, frags[1].Text)
	}
	if frags[0].X != 0 || frags[1].X != 1 || frags[0].Font != "Times" {
		t.Error("layout attributes must not be touched")
	}
}

func TestReintegrate_MismatchMutatesNothing(t *testing.T) {
	frags := fragments("Hallo", "Welt")
	aligned := []aligner.AlignedFragment{
		{OriginalTextFragment: "Hello", TranslatedTextFragment: "Привіт"},
		{OriginalTextFragment: "Welt", TranslatedTextFragment: "світе"},
	}

	err := Reintegrate(frags, aligned)
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
	if mismatch.Index != 0 || mismatch.Want != "Hallo" || mismatch.Got != "Hello" {
		t.Errorf("unexpected mismatch detail: %+v", mismatch)
	}
	if frags[0].Text != "Hallo" || frags[1].Text != "Welt" {
		t.Error("no fragment may be mutated on mismatch")
	}
}

func TestReintegrate_MismatchLaterPairStillMutatesNothing(t *testing.T) {
	// A mismatch at index 1 must protect index 0 as well: validation runs
	// over all pairs before any mutation.
	frags := fragments("Hello", "Welt")
	aligned := []aligner.AlignedFragment{
		{OriginalTextFragment: "Hello", TranslatedTextFragment: "Привіт"},
		{OriginalTextFragment: "World", TranslatedTextFragment: "світе"},
	}

	err := Reintegrate(frags, aligned)
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
	if frags[0].Text != "Hello" {
		t.Error("earlier pair mutated despite later mismatch")
	}
}

func TestReintegrate_LengthMismatch(t *testing.T) {
	frags := fragments("a", "b", "c")
	aligned := []aligner.AlignedFragment{
		{OriginalTextFragment: "a", TranslatedTextFragment: "x"},
		{OriginalTextFragment: "b", TranslatedTextFragment: "y"},
	}

	err := Reintegrate(frags, aligned)
	var lengthErr *LengthError
	if !errors.As(err, &lengthErr) {
		t.Fatalf("expected LengthError, got %v", err)
	}
	if lengthErr.Want != 3 || lengthErr.Got != 2 {
		t.Errorf("unexpected length detail: %+v", lengthErr)
	}
	for i, want := range []string{"a", "b", "c"} {
		if frags[i].Text != want {
			t.Errorf("fragment %d mutated on length mismatch", i)
		}
	}
}

func TestReintegrate_EmptyFragmentsAllowed(t *testing.T) {
	frags := fragments("Hello", "")
	aligned := []aligner.AlignedFragment{
		{OriginalTextFragment: "Hello", TranslatedTextFragment: "Привіт"},
		{OriginalTextFragment: "", TranslatedTextFragment: ""},
	}

	if err := Reintegrate(frags, aligned); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frags[1].Text != "" {
		t.Errorf("empty fragment should stay empty, got %q", frags[1].Text)
	}
}
