package nlp

import (
	"context"
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"

	"tickerize/internal"
)

// ProseTagger uses prose's bundled entity model in process.
type ProseTagger struct{}

func (ProseTagger) Tag(ctx context.Context, tokens []string) ([]internal.TaggedToken, error) {
	if len(tokens) == 0 {
		return []internal.TaggedToken{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := prose.NewDocument(strings.Join(tokens, " "), prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("prose tag: %w", err)
	}

	toks := doc.Tokens()
	produced := make([]internal.TaggedToken, 0, len(toks))
	for _, tok := range toks {
		produced = append(produced, internal.TaggedToken{Text: tok.Text, Label: NormalizeLabel(tok.Label)})
	}
	return alignLabels(tokens, produced), nil
}
