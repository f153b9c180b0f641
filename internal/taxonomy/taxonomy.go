// Package taxonomy defines the HERO/HUB/HELP category set and the
// classification sources that decide which label wins.
package taxonomy

import (
	"fmt"
	"strings"

	"ytanalyzer/internal/services"
)

// Category is a marketing taxonomy label. The zero value means unclassified.
type Category string

const (
	None Category = ""
	Hero Category = "hero"
	Hub  Category = "hub"
	Help Category = "help"
)

// Categories lists the labelled categories in display order.
var Categories = []Category{Hero, Hub, Help}

// Valid reports whether c is one of hero, hub, or help.
func (c Category) Valid() bool {
	switch c {
	case Hero, Hub, Help:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	if c == None {
		return "none"
	}
	return string(c)
}

// ParseCategory normalizes user input into a labelled category.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if !c.Valid() {
		return None, services.Wrap(services.ErrValidation, "taxonomy", "parse category",
			fmt.Sprintf("%q is not one of hero, hub, help", value), nil)
	}
	return c, nil
}

// CategoryFromDB converts a nullable column value; unknown values read as None.
func CategoryFromDB(value string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if c.Valid() {
		return c
	}
	return None
}

// Source records who produced a category label.
type Source string

const (
	SourceNone       Source = ""
	SourceKeyword    Source = "keyword"
	SourceSemantic   Source = "semantic"
	SourcePropagated Source = "propagated"
	SourceHuman      Source = "human"
)

// Priority orders sources; a higher value is never replaced by a lower one
// except that machine sources may replace each other on re-runs.
func (s Source) Priority() int {
	switch s {
	case SourceHuman:
		return 4
	case SourcePropagated:
		return 3
	case SourceSemantic:
		return 2
	case SourceKeyword:
		return 1
	default:
		return 0
	}
}

// IsSticky reports whether the label may only be changed by another human action.
func (s Source) IsSticky() bool {
	return s == SourceHuman
}

// IsMachine reports whether s was produced by automated classification.
func (s Source) IsMachine() bool {
	switch s {
	case SourceKeyword, SourceSemantic, SourcePropagated:
		return true
	default:
		return false
	}
}

func (s Source) String() string {
	if s == SourceNone {
		return "none"
	}
	return string(s)
}

// SourceFromDB converts a nullable column value. Legacy free-text sources
// ("ml", "auto") read as keyword.
func SourceFromDB(value string) Source {
	switch v := Source(strings.ToLower(strings.TrimSpace(value))); v {
	case SourceHuman, SourcePropagated, SourceSemantic, SourceKeyword:
		return v
	case "":
		return SourceNone
	default:
		return SourceKeyword
	}
}

// Label pairs a category with the source that produced it.
type Label struct {
	Category       Category
	Source         Source
	HumanValidated bool
}

// Sticky reports whether the label is protected from machine writes.
func (l Label) Sticky() bool {
	return l.Source.IsSticky() || l.HumanValidated
}

// Resolve returns the label that should be stored when a candidate competes
// with the current one.
func Resolve(current, candidate Label) Label {
	if current.Sticky() {
		return current
	}
	if candidate.Source.IsSticky() {
		return candidate
	}
	if !candidate.Category.Valid() {
		return current
	}
	return candidate
}
