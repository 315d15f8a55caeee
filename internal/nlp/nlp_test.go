package nlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerize/internal"
)

func TestNormalizeLabel(t *testing.T) {
	cases := []struct {
		raw  string
		want internal.Label
	}{
		{raw: "ORGANIZATION", want: internal.LabelOrganization},
		{raw: "B-ORG", want: internal.LabelOrganization},
		{raw: "I-PERSON", want: internal.LabelPerson},
		{raw: "gpe", want: internal.LabelLocation},
		{raw: "O", want: internal.LabelOther},
		{raw: "", want: internal.LabelOther},
		{raw: "MONEY", want: internal.Label("MONEY")},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeLabel(tc.raw))
		})
	}
}

func TestAlignLabelsSameLength(t *testing.T) {
	got := alignLabels([]string{"Apple", "rises"}, []internal.TaggedToken{
		{Text: "apple", Label: internal.LabelOrganization},
		{Text: "rises", Label: internal.LabelOther},
	})
	assert.Equal(t, []internal.TaggedToken{
		{Text: "Apple", Label: internal.LabelOrganization},
		{Text: "rises", Label: internal.LabelOther},
	}, got)
}

func TestAlignLabelsDifferentTokenization(t *testing.T) {
	got := alignLabels([]string{"Apple's", "profit", "Tesla"}, []internal.TaggedToken{
		{Text: "Apple", Label: internal.LabelOrganization},
		{Text: "'s", Label: internal.LabelOther},
		{Text: "profit", Label: internal.LabelOther},
		{Text: "Tesla", Label: internal.LabelOrganization},
	})
	require.Len(t, got, 3)
	assert.Equal(t, internal.LabelOther, got[0].Label)
	assert.Equal(t, internal.LabelOther, got[1].Label)
	assert.Equal(t, internal.LabelOrganization, got[2].Label)
	assert.Equal(t, "Apple's", got[0].Text)
}

func TestNoopExtractor(t *testing.T) {
	triples, err := NoopExtractor{}.Extract(context.Background(), "Apple buys Beats")
	require.NoError(t, err)
	assert.Empty(t, triples)
}

func TestTokenizers(t *testing.T) {
	toks, err := ProseTokenizer{}.Tokenize("Apple reports record profit")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "reports", "record", "profit"}, toks)

	toks, err = ProseTokenizer{}.Tokenize("   ")
	require.NoError(t, err)
	assert.Empty(t, toks)

	toks, err = WhitespaceTokenizer{}.Tokenize(" Bank  of\tAmerica ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bank", "of", "America"}, toks)
}

func TestProseTaggerKeepsTokens(t *testing.T) {
	tagged, err := ProseTagger{}.Tag(context.Background(), []string{"Apple", "reports", "record", "profit"})
	require.NoError(t, err)
	require.Len(t, tagged, 4)
	assert.Equal(t, "profit", tagged[3].Text)

	tagged, err = ProseTagger{}.Tag(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tagged)
}
