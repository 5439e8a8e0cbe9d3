package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Category is the five-element classification of a face.
type Category string

// Category values.
const (
	CategoryWood  Category = "木"
	CategoryFire  Category = "火"
	CategoryEarth Category = "土"
	CategoryMetal Category = "金"
	CategoryWater Category = "水"
)

// Categories lists every valid Category.
var Categories = []Category{CategoryWood, CategoryFire, CategoryEarth, CategoryMetal, CategoryWater}

// SectionStatus grades a section.
type SectionStatus string

// SectionStatus values.
const (
	StatusExcellent SectionStatus = "优"
	StatusGood      SectionStatus = "良"
	StatusFair      SectionStatus = "平"
)

// SectionStatuses lists every valid SectionStatus.
var SectionStatuses = []SectionStatus{StatusExcellent, StatusGood, StatusFair}

// Region identifies the facial area an observation refers to.
type Region string

// Region values.
const (
	RegionForehead   Region = "forehead"
	RegionEyes       Region = "eyes"
	RegionNose       Region = "nose"
	RegionMouth      Region = "mouth"
	RegionChin       Region = "chin"
	RegionLeftCheek  Region = "left-cheek"
	RegionRightCheek Region = "right-cheek"
	RegionWholeFace  Region = "whole-face"
)

// Regions lists every valid Region.
var Regions = []Region{
	RegionForehead, RegionEyes, RegionNose, RegionMouth,
	RegionChin, RegionLeftCheek, RegionRightCheek, RegionWholeFace,
}

// MoleNature is the auspiciousness of a marking.
type MoleNature string

// MoleNature values.
const (
	MoleAuspicious   MoleNature = "吉"
	MoleInauspicious MoleNature = "凶"
	MoleNeutral      MoleNature = "平"
)

// MoleNatures lists every valid MoleNature.
var MoleNatures = []MoleNature{MoleAuspicious, MoleInauspicious, MoleNeutral}

// canonical trims, folds full-width forms and applies NFC so that visually
// identical tags compare equal. It never maps one tag onto another.
func canonical(s string) string {
	return norm.NFC.String(width.Fold.String(strings.TrimSpace(s)))
}

func lookup[T ~string](s string, values []T) (T, bool) {
	for _, v := range values {
		if string(v) == s {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// ParseCategory converts s into a Category or fails for values outside the set.
func ParseCategory(s string) (Category, error) {
	if c, ok := lookup(canonical(s), Categories); ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ParseSectionStatus converts s into a SectionStatus.
func ParseSectionStatus(s string) (SectionStatus, error) {
	if st, ok := lookup(canonical(s), SectionStatuses); ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown section status %q", s)
}

// ParseRegion converts s into a Region. Case and the separator between words
// ("left_cheek", "Left Cheek") are not significant.
func ParseRegion(s string) (Region, error) {
	c := strings.ToLower(canonical(s))
	c = strings.NewReplacer("_", "-", " ", "-").Replace(c)
	if r, ok := lookup(c, Regions); ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// ParseMoleNature converts s into a MoleNature.
func ParseMoleNature(s string) (MoleNature, error) {
	if n, ok := lookup(canonical(s), MoleNatures); ok {
		return n, nil
	}
	return "", fmt.Errorf("unknown mole nature %q", s)
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
