// Package search ranks macros against a free-text query with TF-IDF, so a
// trigger can be found by what it expands to.
package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/saeedalam/radscribe/pkg/types"
)

// DefaultLimit is used when Find is called with limit <= 0
const DefaultLimit = 10

// synonyms maps common dictation abbreviations to their full forms.
var synonyms = map[string]string{
	"ct":    "tomography",
	"cta":   "angiography",
	"mr":    "magnetic",
	"mri":   "magnetic",
	"mra":   "angiography",
	"us":    "ultrasound",
	"xr":    "radiograph",
	"cxr":   "chest",
	"kub":   "abdomen",
	"abd":   "abdomen",
	"ap":    "anteroposterior",
	"pa":    "posteroanterior",
	"lat":   "lateral",
	"ant":   "anterior",
	"post":  "posterior",
	"bilat": "bilateral",
	"lt":    "left",
	"rt":    "right",
	"fx":    "fracture",
	"ptx":   "pneumothorax",
	"eff":   "effusion",
	"ln":    "lymph",
	"nml":   "normal",
	"wnl":   "normal",
	"neg":   "negative",
	"fu":    "follow",
	"hx":    "history",
	"dx":    "diagnosis",
}

// suffixes to strip for simple stemming, ordered longest first.
var stemmingSuffixes = []string{
	"ation", "tion", "ment", "ness", "able", "ible",
	"ing", "ous", "ive", "ful", "less", "ist",
	"ed", "ly", "er", "al", "es",
}

// simpleStem strips common English suffixes from a word.
// Only applied to words >= 5 chars; result must be >= 3 chars.
func simpleStem(word string) string {
	if len(word) < 5 {
		return word
	}
	for _, suffix := range stemmingSuffixes {
		if strings.HasSuffix(word, suffix) {
			stem := word[:len(word)-len(suffix)]
			if len(stem) >= 3 {
				return stem
			}
		}
	}
	return word
}

// stopwords are dropped before scoring. Negations stay: "no" and "not"
// carry meaning in findings.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "is": true, "it": true, "as": true,
	"be": true, "was": true, "are": true, "were": true, "been": true, "has": true,
	"have": true, "had": true, "this": true, "that": true, "these": true,
	"those": true, "there": true, "which": true, "all": true, "each": true,
	"both": true, "some": true, "such": true, "than": true, "very": true,
	"into": true, "within": true,
}

// Tokenize splits text into lowercase tokens, removing stopwords and
// single characters. Each token is followed by its stem and synonym when
// they differ, then bigrams of the expanded list are appended.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var expanded []string
	for _, t := range tokens {
		if len(t) < 2 || stopwords[t] {
			continue
		}
		expanded = append(expanded, t)
		if stemmed := simpleStem(t); stemmed != t {
			expanded = append(expanded, stemmed)
		}
		if syn, ok := synonyms[t]; ok && syn != t {
			expanded = append(expanded, syn)
		}
	}

	baseLen := len(expanded)
	for i := 0; i < baseLen-1; i++ {
		expanded = append(expanded, expanded[i]+"_"+expanded[i+1])
	}

	return expanded
}

// Match is one macro ranked against a query
type Match struct {
	Macro types.Macro `json:"macro"`
	Score float64     `json:"score"`
}

// Index holds TF-IDF vectors for a macro snapshot. It is read-only after
// NewIndex and safe for concurrent Find calls.
type Index struct {
	vocabulary map[string]int
	idf        []float64
	macros     []types.Macro
	vectors    [][]float64
}

// NewIndex builds an index over macros. Each document is the macro name,
// its default text and every context expansion.
func NewIndex(macros []types.Macro) *Index {
	ix := &Index{
		vocabulary: make(map[string]int),
		macros:     macros,
	}

	docs := make([][]string, len(macros))
	df := make(map[string]int)
	for i, m := range macros {
		docs[i] = Tokenize(document(m))
		seen := make(map[string]bool)
		for _, t := range docs[i] {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	// Smoothed IDF; libraries are small, so no term is pruned
	n := float64(len(macros))
	ix.idf = make([]float64, len(terms))
	for i, t := range terms {
		ix.vocabulary[t] = i
		ix.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1.0
	}

	ix.vectors = make([][]float64, len(macros))
	for i, tokens := range docs {
		ix.vectors[i] = ix.vectorize(tokens)
	}
	return ix
}

// Len returns the number of indexed macros
func (ix *Index) Len() int {
	return len(ix.macros)
}

// Find returns up to limit macros with a positive score, best first. A
// query equal to a macro name ranks that macro first with score 1.
func (ix *Index) Find(query string, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query = strings.TrimSpace(query)
	if query == "" || len(ix.macros) == 0 {
		return nil
	}

	qvec := ix.vectorize(Tokenize(query))

	var matches []Match
	for i, m := range ix.macros {
		score := CosineSimilarity(qvec, ix.vectors[i])
		if strings.EqualFold(strings.TrimSpace(m.Name), query) {
			score = 1
		}
		if score > 0 {
			matches = append(matches, Match{Macro: m, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// vectorize computes the length-normalized TF-IDF vector of tokens
func (ix *Index) vectorize(tokens []string) []float64 {
	vec := make([]float64, len(ix.vocabulary))
	if len(tokens) == 0 || len(vec) == 0 {
		return vec
	}

	tf := make(map[string]float64)
	for _, t := range tokens {
		tf[t]++
	}
	docLen := float64(len(tokens))
	for term, count := range tf {
		if i, ok := ix.vocabulary[term]; ok {
			vec[i] = count / docLen * ix.idf[i]
		}
	}
	return vec
}

func document(m types.Macro) string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteString(" ")
	b.WriteString(m.ReplacementText)
	for _, ce := range m.ContextExpansions {
		b.WriteString(" ")
		b.WriteString(ce.BodyPart)
		b.WriteString(" ")
		b.WriteString(ce.Text)
	}
	return b.String()
}

// CosineSimilarity computes the cosine similarity between two vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}
