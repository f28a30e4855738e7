package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saeedalam/radscribe/pkg/types"
)

func library() []types.Macro {
	return []types.Macro{
		{ID: "1", Name: "neg", ReplacementText: "No acute abnormality."},
		{ID: "2", Name: "ptx", ReplacementText: "No pneumothorax or pleural effusion."},
		{ID: "3", Name: "nml", ReplacementText: "Normal examination.", IsSmartMacro: true,
			ContextExpansions: []types.ContextExpansion{
				{BodyPart: "Chest", Text: "The lungs are clear."},
				{BodyPart: "Head", Text: "No intracranial hemorrhage."},
			}},
		{ID: "4", Name: "fu", ReplacementText: "Follow-up imaging recommended in 6 months."},
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The lungs are clear")
	assert.Equal(t, []string{"lungs", "clear", "lungs_clear"}, tokens)

	// Synonym follows the abbreviation
	tokens = Tokenize("CXR")
	assert.Equal(t, []string{"cxr", "chest", "cxr_chest"}, tokens)

	// Negation survives stopword removal
	assert.Contains(t, Tokenize("no effusion"), "no")
}

func TestSimpleStem(t *testing.T) {
	assert.Equal(t, "recommend", simpleStem("recommended"))
	assert.Equal(t, "lung", simpleStem("lung"))
	assert.Equal(t, "imag", simpleStem("imaging"))
}

func TestFindByContent(t *testing.T) {
	ix := NewIndex(library())
	require.Equal(t, 4, ix.Len())

	matches := ix.Find("pleural effusion", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "ptx", matches[0].Macro.Name)

	// Context expansion text is searchable
	matches = ix.Find("intracranial hemorrhage", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "nml", matches[0].Macro.Name)

	// Body part labels are searchable
	matches = ix.Find("chest", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "nml", matches[0].Macro.Name)
}

func TestFindExactNameFirst(t *testing.T) {
	ix := NewIndex(library())

	matches := ix.Find("FU", 5)
	require.NotEmpty(t, matches)
	assert.Equal(t, "fu", matches[0].Macro.Name)
	assert.Equal(t, 1.0, matches[0].Score)
}

func TestFindLimitAndEmpty(t *testing.T) {
	ix := NewIndex(library())

	assert.Nil(t, ix.Find("   ", 5))
	assert.Empty(t, ix.Find("xylophone", 5))
	assert.Len(t, ix.Find("no", 1), 1)

	assert.Nil(t, NewIndex(nil).Find("neg", 5))
}

func TestFindScoresDescending(t *testing.T) {
	ix := NewIndex(library())

	matches := ix.Find("no acute pneumothorax", 0)
	require.True(t, len(matches) >= 2)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{0, 0}))
}
