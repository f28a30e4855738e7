package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saeedalam/radscribe/internal/patterns"
	"github.com/saeedalam/radscribe/pkg/types"
)

func TestShortTextReturnsNil(t *testing.T) {
	modality := MustNew(patterns.DefaultModalities())
	bodyPart := MustNew(patterns.DefaultBodyParts())

	inputs := []string{"", "ct", "ct chest", "   ct chest    ", "123456789", "\t\nmri\t\n"}
	for _, in := range inputs {
		assert.Nil(t, modality.Classify(in), "modality for %q", in)
		assert.Nil(t, bodyPart.Classify(in), "body part for %q", in)
	}
}

func TestLengthGuardCountsRunes(t *testing.T) {
	groups := []types.KeywordGroup{{Label: "Head", Keywords: []string{"schädel"}, Weight: 1}}
	c := MustNew(groups)

	// 9 runes but 10 bytes
	assert.Nil(t, c.Classify("schädel x"))
	require.NotNil(t, c.Classify("schädel xy"))
}

func TestNoMatchReturnsNil(t *testing.T) {
	c := MustNew(patterns.DefaultModalities())
	assert.Nil(t, c.Classify("patient reports feeling better today"))
}

func TestSingleKeywordIsCappedAt99(t *testing.T) {
	c := MustNew(patterns.DefaultModalities())

	result := c.Classify("findings on the mri are stable")
	require.NotNil(t, result)
	assert.Equal(t, "MRI", result.Label)
	assert.Equal(t, 99, result.Confidence)
	assert.Equal(t, []string{"mri"}, result.MatchedKeywords)
}

func TestConfidenceIsShareOfTotal(t *testing.T) {
	groups := []types.KeywordGroup{
		{Label: "A", Keywords: []string{"alpha"}, Weight: 3},
		{Label: "B", Keywords: []string{"beta"}, Weight: 1},
	}
	c := MustNew(groups)

	result := c.Classify("alpha and beta together")
	require.NotNil(t, result)
	assert.Equal(t, "A", result.Label)
	assert.Equal(t, 75, result.Confidence)

	// 2/3 rounds to 67
	result = c.Classify("alpha beta beta beta beta beta beta")
	require.NotNil(t, result)
	assert.Equal(t, "B", result.Label)
	assert.Equal(t, 67, result.Confidence)
}

func TestOccurrencesAreCountedAndWeighted(t *testing.T) {
	groups := []types.KeywordGroup{
		{Label: "A", Keywords: []string{"alpha"}, Weight: 1},
		{Label: "B", Keywords: []string{"beta"}, Weight: 2.5},
	}
	c := MustNew(groups)

	ranked := c.Rank("alpha alpha alpha beta")
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Label)
	assert.InDelta(t, 3.0, ranked[0].Score, 1e-9)
	assert.Equal(t, "B", ranked[1].Label)
	assert.InDelta(t, 2.5, ranked[1].Score, 1e-9)
	assert.InDelta(t, 3.0/5.5, ranked[0].Share, 1e-9)
}

func TestTieBreakUsesConfigurationOrder(t *testing.T) {
	groups := []types.KeywordGroup{
		{Label: "First", Keywords: []string{"knee"}, Weight: 1},
		{Label: "Second", Keywords: []string{"ankle"}, Weight: 1},
		{Label: "Third", Keywords: []string{"foot"}, Weight: 1},
	}

	text := "foot ankle knee evaluated today"
	for i := 0; i < 50; i++ {
		result, err := Classify(text, groups)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "First", result.Label)
		assert.Equal(t, 33, result.Confidence)
	}

	reversed := []types.KeywordGroup{groups[2], groups[1], groups[0]}
	result, err := Classify(text, reversed)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Third", result.Label)
}

func TestWholeWordMatching(t *testing.T) {
	groups := []types.KeywordGroup{{Label: "CT", Keywords: []string{"ct"}, Weight: 1}}
	c := MustNew(groups)

	assert.Nil(t, c.Classify("contact the doctor about the act"))
	require.NotNil(t, c.Classify("ct shows no abnormality"))
	require.NotNil(t, c.Classify("Findings (CT): unremarkable"))
}

func TestCaseInsensitive(t *testing.T) {
	c := MustNew(patterns.DefaultBodyParts())
	result := c.Classify("THE LUNGS ARE CLEAR")
	require.NotNil(t, result)
	assert.Equal(t, "Chest", result.Label)
	assert.Equal(t, []string{"lungs"}, result.MatchedKeywords)
}

func TestMatchedKeywordsAreDeduplicatedInOrder(t *testing.T) {
	groups := []types.KeywordGroup{
		{Label: "Chest", Keywords: []string{"lung", "chest", "lung"}, Weight: 1},
	}
	c := MustNew(groups)

	result := c.Classify("chest film, lung lung chest")
	require.NotNil(t, result)
	assert.Equal(t, []string{"lung", "chest"}, result.MatchedKeywords)
}

func TestKeywordWithPatternCharactersIsLiteral(t *testing.T) {
	groups := []types.KeywordGroup{
		{Label: "PET", Keywords: []string{"pet.ct", "c++"}, Weight: 1},
	}
	c := MustNew(groups)

	assert.Nil(t, c.Classify("petXct is not a literal match"))
	result := c.Classify("the pet.ct was reviewed")
	require.NotNil(t, result)
	assert.Equal(t, []string{"pet.ct"}, result.MatchedKeywords)
}

func TestEndToEndScenario(t *testing.T) {
	text := "CT scan of the chest demonstrates clear lung fields"

	modality, err := Classify(text, patterns.DefaultModalities())
	require.NoError(t, err)
	want := &types.DetectionResult{Label: "CT", Confidence: 99, MatchedKeywords: []string{"ct", "ct scan"}}
	if diff := cmp.Diff(want, modality); diff != "" {
		t.Errorf("modality mismatch (-want +got):\n%s", diff)
	}

	bodyPart, err := Classify(text, patterns.DefaultBodyParts())
	require.NoError(t, err)
	require.NotNil(t, bodyPart)
	assert.Equal(t, "Chest", bodyPart.Label)
	assert.Less(t, bodyPart.Confidence, 100)
}

func TestRankExposesAllCandidates(t *testing.T) {
	c := MustNew(patterns.DefaultBodyParts())
	ranked := c.Rank("CT chest abdomen and pelvis with contrast; liver and lungs normal")

	labels := make([]string, len(ranked))
	for i, r := range ranked {
		labels[i] = r.Label
	}
	assert.Equal(t, []string{"Chest", "Abdomen", "Pelvis"}, labels)

	total := 0.0
	for _, r := range ranked {
		total += r.Share
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	if diff := cmp.Diff([]string{"chest", "lungs"}, ranked[0].MatchedKeywords, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("matched keywords (-want +got):\n%s", diff)
	}
}

func TestNewRejectsInvalidTables(t *testing.T) {
	bad := [][]types.KeywordGroup{
		{{Label: "CT", Keywords: []string{"ct"}, Weight: 0}},
		{{Label: "CT", Keywords: []string{"ct"}, Weight: -1}},
		{{Label: "CT", Weight: 1}},
		{{Label: "CT", Keywords: []string{"ct", "  "}, Weight: 1}},
	}
	for _, groups := range bad {
		_, err := New(groups)
		assert.ErrorIs(t, err, patterns.ErrInvalidGroup, "%+v", groups)

		result, err := Classify("ct of the long enough text", groups)
		assert.ErrorIs(t, err, patterns.ErrInvalidGroup)
		assert.Nil(t, result)
	}
	assert.Panics(t, func() { MustNew(bad[0]) })
}

func TestEmptyTableNeverMatches(t *testing.T) {
	result, err := Classify("long enough text here", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestLabelsAreOpaque(t *testing.T) {
	result, err := Classify("plain film of the hand", []types.KeywordGroup{
		{Label: "X-Ray/CR", Keywords: []string{"film"}, Weight: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "X-Ray/CR", result.Label)

	// Labels differing only in case stay separate groups
	result, err = Classify("foo bar baz qux", []types.KeywordGroup{
		{Label: "A", Keywords: []string{"foo"}, Weight: 1},
		{Label: "a", Keywords: []string{"bar", "baz"}, Weight: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "a", result.Label)
	assert.Equal(t, 67, result.Confidence)

	// Repeated labels are scored independently, first wins a tie
	result, err = Classify("separator test with & and = chars", []types.KeywordGroup{
		{Label: "a&b=c", Keywords: []string{"separator"}, Weight: 1},
		{Label: "a&b=c", Keywords: []string{"chars"}, Weight: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "a&b=c", result.Label)
	assert.Equal(t, []string{"separator"}, result.MatchedKeywords)
}

func TestClassifyDoesNotMutateGroups(t *testing.T) {
	groups := patterns.DefaultModalities()
	before := patterns.DefaultModalities()

	_, err := Classify("CT of the head without contrast", groups)
	require.NoError(t, err)
	assert.Equal(t, before, groups)
}

func TestLabels(t *testing.T) {
	c := MustNew(patterns.DefaultModalities())
	assert.Equal(t, "Nuclear Medicine", c.Labels()[7])
}
