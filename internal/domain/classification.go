package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ExpenseType is the top-level operating expense bucket.
type ExpenseType string

const (
	ExpenseSelling        ExpenseType = "selling"
	ExpenseAdministrative ExpenseType = "administrative"
)

// IsValid reports whether the expense type is known.
func (t ExpenseType) IsValid() bool {
	return t == ExpenseSelling || t == ExpenseAdministrative
}

// ClassificationMethod records which rule layer resolved a classification.
type ClassificationMethod string

const (
	MethodExactCode    ClassificationMethod = "exact_code"
	MethodCodePrefix   ClassificationMethod = "code_prefix"
	MethodPattern      ClassificationMethod = "pattern"
	MethodGroupPattern ClassificationMethod = "group_pattern"
	MethodDefault      ClassificationMethod = "default"
)

const (
	defaultCategory  = "other"
	defaultFallback  = "general"
	codePrefixLength = 3

	confidenceExact    = 0.95
	confidencePrefix   = 0.85
	confidenceCategory = 0.75
	confidenceGroup    = 0.60
	confidenceDefault  = 0.30
)

// CategoryRef is a (type, category) pair.
type CategoryRef struct {
	Type     ExpenseType `mapstructure:"type" json:"type"`
	Category string      `mapstructure:"category" json:"category"`
}

// CategoryPatterns maps regex patterns to one category inside a group.
type CategoryPatterns struct {
	Category string   `mapstructure:"category" json:"category"`
	Patterns []string `mapstructure:"patterns" json:"patterns"`
}

// PatternGroup holds the top-level patterns of one expense type and its
// category-specific sub-patterns.
type PatternGroup struct {
	Fallback   string             `mapstructure:"fallback" json:"fallback"`
	Patterns   []string           `mapstructure:"patterns" json:"patterns"`
	Categories []CategoryPatterns `mapstructure:"categories" json:"categories"`
}

// RuleSet is the operator-maintained classification table.
type RuleSet struct {
	Codes          map[string]CategoryRef `mapstructure:"codes" json:"codes"`
	Version        string                 `mapstructure:"version" json:"version"`
	Default        CategoryRef            `mapstructure:"default" json:"default"`
	Selling        PatternGroup           `mapstructure:"selling" json:"selling"`
	Administrative PatternGroup           `mapstructure:"administrative" json:"administrative"`
	Other          OtherRules             `mapstructure:"other" json:"other"`
}

// ClassifyInput is what the classifier looks at.
type ClassifyInput struct {
	AccountCode string
	AccountName string
	Description string
	Tags        []string
}

// Classification is the result of classifying one transaction.
type Classification struct {
	ExpenseType  ExpenseType          `json:"expense_type"`
	Category     string               `json:"category"`
	Method       ClassificationMethod `json:"method"`
	RulesVersion string               `json:"rules_version,omitempty"`
	Factors      []string             `json:"factors"`
	Confidence   float64              `json:"confidence"`
}

type patternRule struct {
	re         *regexp.Regexp
	result     CategoryRef
	method     ClassificationMethod
	confidence float64
}

// Classifier resolves account postings to expense categories using a compiled RuleSet.
// It is immutable once built and safe for concurrent use.
type Classifier struct {
	codes   map[string]CategoryRef
	def     CategoryRef
	version string
	rules   []patternRule
	other   *otherClassifier
}

// NewClassifier compiles a rule set. Rule order is preserved: selling sub-categories,
// selling group patterns, administrative sub-categories, administrative group patterns.
func NewClassifier(rs *RuleSet) (*Classifier, error) {
	if rs == nil {
		return nil, ErrRulesUnavailable
	}

	c := &Classifier{
		codes:   make(map[string]CategoryRef, len(rs.Codes)),
		def:     rs.Default,
		version: rs.Version,
	}

	if !c.def.Type.IsValid() {
		c.def = CategoryRef{Type: ExpenseAdministrative, Category: defaultCategory}
	}
	if c.def.Category == "" {
		c.def.Category = defaultCategory
	}

	for code, ref := range rs.Codes {
		if !ref.Type.IsValid() {
			return nil, NewValidationError("codes."+code, fmt.Sprintf("unknown expense type %q", ref.Type))
		}
		c.codes[strings.TrimSpace(code)] = ref
	}

	groups := []struct {
		typ   ExpenseType
		group PatternGroup
	}{
		{ExpenseSelling, rs.Selling},
		{ExpenseAdministrative, rs.Administrative},
	}

	for _, g := range groups {
		for _, cat := range g.group.Categories {
			for _, p := range cat.Patterns {
				re, err := compilePattern(p)
				if err != nil {
					return nil, err
				}
				c.rules = append(c.rules, patternRule{
					re:         re,
					result:     CategoryRef{Type: g.typ, Category: cat.Category},
					method:     MethodPattern,
					confidence: confidenceCategory,
				})
			}
		}

		fallback := g.group.Fallback
		if fallback == "" {
			fallback = defaultFallback
		}
		for _, p := range g.group.Patterns {
			re, err := compilePattern(p)
			if err != nil {
				return nil, err
			}
			c.rules = append(c.rules, patternRule{
				re:         re,
				result:     CategoryRef{Type: g.typ, Category: fallback},
				method:     MethodGroupPattern,
				confidence: confidenceGroup,
			})
		}
	}

	other, err := newOtherClassifier(rs.Other)
	if err != nil {
		return nil, err
	}
	c.other = other

	return c, nil
}

func compilePattern(p string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + p)
	if err != nil {
		return nil, NewValidationError("pattern", fmt.Sprintf("%q: %v", p, err))
	}
	return re, nil
}

// Version returns the rule set version the classifier was built from.
func (c *Classifier) Version() string {
	return c.version
}

// Classify resolves a posting, first match wins: exact code, code prefix,
// name/description patterns, default.
func (c *Classifier) Classify(in ClassifyInput) Classification {
	code := strings.TrimSpace(in.AccountCode)

	if ref, ok := c.codes[code]; ok && code != "" {
		return c.result(ref, MethodExactCode, confidenceExact,
			fmt.Sprintf("account code %s matched exactly", code))
	}

	if len(code) > codePrefixLength {
		prefix := code[:codePrefixLength]
		if ref, ok := c.codes[prefix]; ok {
			return c.result(ref, MethodCodePrefix, confidencePrefix,
				fmt.Sprintf("account code %s matched series %s", code, prefix))
		}
	}

	text := strings.Join(append([]string{in.AccountName, in.Description}, in.Tags...), " ")
	for _, r := range c.rules {
		if r.re.MatchString(text) {
			return c.result(r.result, r.method, r.confidence,
				fmt.Sprintf("%s pattern %q matched %q", r.result.Type, strings.TrimPrefix(r.re.String(), "(?i)"), strings.TrimSpace(text)))
		}
	}

	return c.result(c.def, MethodDefault, confidenceDefault, "no rule matched")
}

func (c *Classifier) result(ref CategoryRef, method ClassificationMethod, confidence float64, factor string) Classification {
	return Classification{
		ExpenseType:  ref.Type,
		Category:     ref.Category,
		Method:       method,
		Confidence:   confidence,
		Factors:      []string{factor},
		RulesVersion: c.version,
	}
}
