// Package aligner builds per-page translation requests and obtains
// fragment-aligned translations from an LLM chat backend, validating every
// reply against the expected structure and retrying on malformed ones.
package aligner

// AlignedFragment pairs an original text fragment with its translation. The
// fragment's position is its index in the enclosing list; order is significant
// and must survive the round trip through the LLM untouched.
type AlignedFragment struct {
	OriginalTextFragment   string `json:"original_text_fragment"`
	TranslatedTextFragment string `json:"translated_text_fragment"`
}

// PageContext is the whole-page original/translated text pair. It gives the
// model page-level context; it is not the authoritative per-fragment
// translation.
type PageContext struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// PageRequest is the wire structure sent to the LLM for one page.
type PageRequest struct {
	PageNumber    int               `json:"page_number"`
	PageContext   PageContext       `json:"page_context"`
	TextFragments []AlignedFragment `json:"text_fragments"`
}

// PageResponse is the validated reply: the same fragment list with every
// TranslatedTextFragment populated by the model.
type PageResponse struct {
	TextFragments []AlignedFragment `json:"text_fragments"`
}

// BuildRequest assembles the request for one page. The fragment list is a 1:1
// ordered copy of fragments with empty translation placeholders; the model
// must fill them, never invent or drop entries.
func BuildRequest(pageNumber int, originalText, translatedText string, fragments []string) *PageRequest {
	req := &PageRequest{
		PageNumber: pageNumber,
		PageContext: PageContext{
			Original:   originalText,
			Translated: translatedText,
		},
		TextFragments: make([]AlignedFragment, len(fragments)),
	}
	for i, text := range fragments {
		req.TextFragments[i] = AlignedFragment{OriginalTextFragment: text}
	}
	return req
}
