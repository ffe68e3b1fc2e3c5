// Package input normalizes inbound analysis requests into the prepared
// payload the model gateway consumes.
package input

import (
	"strings"

	"github.com/rs/zerolog/log"

	"menucritic/internal/critique"
	"menucritic/internal/failure"
	"menucritic/internal/imageprep"
)

// Kind declares which input the request carries.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// AnalysisRequest is the boundary type every entry point (HTTP handler, CLI)
// builds before handing off to the pipeline.
type AnalysisRequest struct {
	SessionID string
	Mode      critique.Mode
	Kind      Kind

	Text  string
	Image []byte

	// Goal and Context are folded into the prompt when provided.
	Goal    string
	Context string
}

// Payload is the normalized input: cleaned text or an encoded image, never
// both. It is transient and owned by a single request.
type Payload struct {
	Kind Kind

	Text      string
	Truncated bool
	// LooksLikeMenu is a heuristic signal only; text that fails it is still
	// analyzed. It exists so callers can warn about likely non-menu input.
	LooksLikeMenu bool

	Image *imageprep.Encoded
}

// Normalizer validates and cleans analysis requests.
type Normalizer struct {
	MaxTextChars int
	Images       *imageprep.Preprocessor
}

// Normalize turns an AnalysisRequest into a Payload.
// Malformed requests fail fast before any model call is attempted.
func (n *Normalizer) Normalize(req *AnalysisRequest) (*Payload, *failure.Report) {
	if req == nil {
		return nil, failure.New(failure.Unknown, "no request provided")
	}

	hasText := strings.TrimSpace(req.Text) != ""
	hasImage := len(req.Image) > 0
	if hasText && hasImage {
		return nil, failure.New(failure.Unknown, "provide menu text or a menu image, not both")
	}

	switch req.Kind {
	case KindText:
		if hasImage {
			return nil, failure.New(failure.Unknown, "text request carries an image")
		}
		return n.normalizeText(req.Text)

	case KindImage:
		if hasText {
			return nil, failure.New(failure.Unknown, "image request carries menu text")
		}
		if !hasImage {
			return nil, failure.New(failure.Unknown, "image request carries no image")
		}
		enc, rep := n.Images.Prepare(req.Image)
		if rep != nil {
			return nil, rep
		}
		return &Payload{Kind: KindImage, Image: enc}, nil
	}

	return nil, failure.Newf(failure.Unknown, "unknown input kind %q", req.Kind)
}

func (n *Normalizer) normalizeText(text string) (*Payload, *failure.Report) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil, failure.New(failure.Unknown, "menu text is empty")
	}

	truncated := false
	if runes := []rune(cleaned); len(runes) > n.MaxTextChars {
		log.Info().
			Int("chars", len(runes)).
			Int("limit", n.MaxTextChars).
			Msg("Clamping menu text input")
		cleaned = string(runes[:n.MaxTextChars])
		truncated = true
	}

	looks := LooksLikeMenu(cleaned)
	if !looks {
		log.Info().Int("chars", len(cleaned)).Msg("Text input does not look like a menu; analyzing anyway")
	}

	return &Payload{
		Kind:          KindText,
		Text:          cleaned,
		Truncated:     truncated,
		LooksLikeMenu: looks,
	}, nil
}
