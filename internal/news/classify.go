package news

import (
	"fmt"
	"regexp"
	"strings"
)

// Topic is the single category assigned to an item.
type Topic string

const (
	Therapeutics      Topic = "therapeutics"
	Diagnostics       Topic = "diagnostics"
	Research          Topic = "research"
	Industry          Topic = "industry"
	Technology        Topic = "technology"
	Genetics          Topic = "genetics"
	Microbiome        Topic = "microbiome"
	Cancer            Topic = "cancer"
	RareDisease       Topic = "rare_disease"
	InfectiousDisease Topic = "infectious_disease"
	General           Topic = "general"
)

var topicLabels = map[Topic]string{
	Therapeutics:      "Therapeutics",
	Diagnostics:       "Diagnostics",
	Research:          "Research",
	Industry:          "Industry",
	Technology:        "Technology",
	Genetics:          "Genetics",
	Microbiome:        "Microbiome",
	Cancer:            "Cancer",
	RareDisease:       "Rare Disease",
	InfectiousDisease: "Infectious Disease",
	General:           "General",
}

// Label is the human readable topic name.
func (t Topic) Label() string {
	if l, ok := topicLabels[t]; ok {
		return l
	}
	return strings.ReplaceAll(string(t), "_", " ")
}

// Category is one row of the taxonomy.
type Category struct {
	Topic   Topic    `yaml:"topic"`
	Phrases []string `yaml:"phrases"`
}

// Taxonomy lists categories in tie-break priority order, highest first.
type Taxonomy []Category

// DefaultTaxonomy returns the built-in biotech categories.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{Therapeutics, []string{"treatment", "therapy", "drug", "cure", "clinical trial", "fda", "approval"}},
		{Diagnostics, []string{"diagnostic", "detection", "screening", "test", "biomarker"}},
		{Research, []string{"research", "study", "discovery", "breakthrough", "novel"}},
		{Industry, []string{"funding", "investment", "partnership", "collaboration", "company"}},
		{Technology, []string{"technology", "platform", "tool", "device", "ai", "machine learning"}},
		{Genetics, []string{"gene", "genetic", "dna", "rna", "genome", "crispr"}},
		{Microbiome, []string{"microbiome", "bacteria", "microbial", "gut"}},
		{Cancer, []string{"cancer", "oncology", "tumor", "carcinoma", "leukemia"}},
		{RareDisease, []string{"rare disease", "orphan", "genetic disorder"}},
		{InfectiousDisease, []string{"infection", "virus", "bacterial", "pathogen", "vaccine"}},
	}
}

// Topics returns the category topics in priority order.
func (tx Taxonomy) Topics() []Topic {
	out := make([]Topic, 0, len(tx))
	for _, c := range tx {
		out = append(out, c.Topic)
	}
	return out
}

// Validate rejects empty, duplicate or reserved topics.
func (tx Taxonomy) Validate() error {
	seen := make(map[Topic]bool, len(tx))
	for i, c := range tx {
		switch {
		case c.Topic == "":
			return fmt.Errorf("category %d: empty topic", i)
		case c.Topic == General:
			return fmt.Errorf("category %d: %q is reserved for unmatched items", i, General)
		case seen[c.Topic]:
			return fmt.Errorf("category %d: duplicate topic %q", i, c.Topic)
		}
		seen[c.Topic] = true
	}
	return nil
}

// phraseMatcher matches one keyword against normalized text. Matches
// start on a word boundary so "test" does not fire inside "latest".
// Short tokens such as "ai" or "fda" must match the whole word; longer
// phrases also accept a plain inflection ("trials", "tested") but not an
// arbitrary continuation, so "gene" does not match "general".
type phraseMatcher struct {
	phrase string
	re     *regexp.Regexp
}

const inflection = `(?:s|es|d|ed|er|ers|ing)?`

func newPhraseMatcher(phrase string) (phraseMatcher, bool) {
	p := NormalizeText(phrase)
	if p == "" {
		return phraseMatcher{}, false
	}
	pattern := regexp.QuoteMeta(p)
	if isWordByte(p[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(p[len(p)-1]) {
		if strings.Contains(p, " ") || len(p) > 3 {
			pattern += inflection
		}
		pattern += `\b`
	}
	return phraseMatcher{phrase: p, re: regexp.MustCompile(pattern)}, true
}

// isWordByte reports whether b is an ASCII word character, the only kind
// \b understands.
func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func (m phraseMatcher) match(text string) bool {
	return m.re.MatchString(text)
}

// compilePhrases normalizes and dedupes a phrase list, keeping order.
func compilePhrases(phrases []string) []phraseMatcher {
	seen := make(map[string]bool, len(phrases))
	out := make([]phraseMatcher, 0, len(phrases))
	for _, p := range phrases {
		m, ok := newPhraseMatcher(p)
		if !ok || seen[m.phrase] {
			continue
		}
		seen[m.phrase] = true
		out = append(out, m)
	}
	return out
}

type compiledCategory struct {
	topic    Topic
	matchers []phraseMatcher
}

// Classifier assigns topics. It is immutable after construction and safe
// for concurrent use.
type Classifier struct {
	categories []compiledCategory
}

// NewClassifier compiles a taxonomy.
func NewClassifier(tx Taxonomy) (*Classifier, error) {
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}
	c := &Classifier{categories: make([]compiledCategory, 0, len(tx))}
	for _, cat := range tx {
		c.categories = append(c.categories, compiledCategory{
			topic:    cat.Topic,
			matchers: compilePhrases(cat.Phrases),
		})
	}
	return c, nil
}

// matchText is the text both classification and scoring look at.
func matchText(it Item) string {
	title := it.NormalizedTitle
	if title == "" {
		title = NormalizeTitle(it.Title)
	}
	return title + " " + NormalizeText(it.Summary)
}

// Classify returns the category with the most distinct phrase matches.
// Ties go to the category listed first; no match yields General.
func (c *Classifier) Classify(it Item) Topic {
	return c.classifyText(matchText(it))
}

func (c *Classifier) classifyText(text string) Topic {
	best, bestCount := General, 0
	for _, cat := range c.categories {
		n := 0
		for _, m := range cat.matchers {
			if m.match(text) {
				n++
			}
		}
		if n > bestCount {
			best, bestCount = cat.topic, n
		}
	}
	return best
}
