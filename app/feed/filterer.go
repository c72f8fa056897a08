package feed

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// filterFields lists the upload fields a Filter can target.
var filterFields = map[string]func(Item) string{
	"title":       func(item Item) string { return item.Title },
	"description": func(item Item) string { return item.Description },
}

func IsFilterField(field string) bool {
	_, ok := filterFields[field]
	return ok
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// videoRule is a Filter with its terms case folded once per Run.
type videoRule struct {
	field    string
	value    func(Item) string
	includes []string
	excludes []string
	raw      Filter
}

// Run marks the uploads rejected by a channel's filters. Uploads are never
// dropped so the caller can still advance the cursor past them.
func (f *Filterer) Run(uploads []Item, filters []Filter) []Item {
	if len(filters) == 0 {
		return uploads
	}

	// A Caser is stateful, one per Run.
	fold := cases.Fold()
	rules := f.compile(fold, filters)

	marked := make([]Item, 0, len(uploads))
	for _, upload := range uploads {
		upload.IsFiltered, upload.FilterReason = f.check(fold, upload, rules)
		marked = append(marked, upload)
	}

	return marked
}

func (f *Filterer) compile(fold cases.Caser, filters []Filter) []videoRule {
	rules := make([]videoRule, 0, len(filters))
	for _, filter := range filters {
		value, ok := filterFields[filter.Field]
		if !ok {
			// Nothing to read, so include terms can never match.
			value = func(Item) string { return "" }
		}
		rules = append(rules, videoRule{
			field:    filter.Field,
			value:    value,
			includes: foldAll(fold, filter.Includes),
			excludes: foldAll(fold, filter.Excludes),
			raw:      filter,
		})
	}
	return rules
}

func (f *Filterer) check(fold cases.Caser, upload Item, rules []videoRule) (bool, string) {
	for _, rule := range rules {
		text := fold.String(rule.value(upload))

		for i, term := range rule.excludes {
			if strings.Contains(text, term) {
				return true, fmt.Sprintf("%s mentions %q", rule.field, rule.raw.Excludes[i])
			}
		}

		if len(rule.includes) > 0 && !containsAny(text, rule.includes) {
			return true, fmt.Sprintf("%s mentions none of %q", rule.field, rule.raw.Includes)
		}
	}

	return false, ""
}

func foldAll(fold cases.Caser, terms []string) []string {
	folded := make([]string, len(terms))
	for i, term := range terms {
		folded[i] = fold.String(term)
	}
	return folded
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
