// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"slices"
	"strings"
)

// fieldCategories maps a research field to its category tags.
var fieldCategories = map[string][]string{
	"math": {
		"math.AG", "math.AT", "math.AP", "math.AC", "math.CT", "math.CA", "math.CO",
		"math.CV", "math.DG", "math.DS", "math.FA", "math.GM", "math.GN", "math.GT",
		"math.GR", "math.HO", "math.IT", "math.KT", "math.LO", "math.MP", "math.MG",
		"math.NT", "math.NA", "math.OA", "math.OC", "math.PR", "math.QA", "math.RT",
		"math.RA", "math.SP", "math.ST", "math.SG", "math-ph",
	},
	"cs": {
		"cs.AI", "cs.AR", "cs.CC", "cs.CE", "cs.CG", "cs.CL", "cs.CR", "cs.CV",
		"cs.CY", "cs.DB", "cs.DC", "cs.DL", "cs.DM", "cs.DS", "cs.ET", "cs.FL",
		"cs.GL", "cs.GR", "cs.GT", "cs.HC", "cs.IR", "cs.IT", "cs.LG", "cs.LO",
		"cs.MA", "cs.MS", "cs.MM", "cs.NI", "cs.NE", "cs.NA", "cs.OS", "cs.OH",
		"cs.PF", "cs.PL", "cs.RO", "cs.SI", "cs.SE", "cs.SD", "cs.SC", "cs.SY",
	},
	"physics": {
		"physics.acc-ph", "physics.ao-ph", "physics.app-ph", "physics.atm-clus",
		"physics.atom-ph", "physics.bio-ph", "physics.chem-ph", "physics.class-ph",
		"physics.comp-ph", "physics.data-an", "physics.flu-dyn", "physics.gen-ph",
		"physics.geo-ph", "physics.hist-ph", "physics.ins-det", "physics.med-ph",
		"physics.optics", "physics.ed-ph", "physics.soc-ph", "physics.plasm-ph",
		"physics.pop-ph", "physics.space-ph",
	},
	"biology": {
		"q-bio.BM", "q-bio.CB", "q-bio.GN", "q-bio.MN", "q-bio.NC", "q-bio.OT",
		"q-bio.PE", "q-bio.QM", "q-bio.SC", "q-bio.TO",
	},
}

var categoryDescriptions = map[string]string{
	"math.AG":        "Algebraic Geometry",
	"math.AT":        "Algebraic Topology",
	"math.CO":        "Combinatorics",
	"math.PR":        "Probability",
	"cs.AI":          "Artificial Intelligence",
	"cs.CL":          "Computation and Language",
	"cs.CV":          "Computer Vision and Pattern Recognition",
	"cs.LG":          "Machine Learning",
	"physics.optics": "Optics",
	"q-bio.NC":       "Neurons and Cognition",
}

// Fields returns the known field names in sorted order.
func Fields() []string {
	out := make([]string, 0, len(fieldCategories))
	for f := range fieldCategories {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// CategoriesForField returns a copy of the categories for field, or nil
// when the field is unknown. Matching is case-insensitive.
func CategoriesForField(field string) []string {
	cats, ok := fieldCategories[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		return nil
	}
	return slices.Clone(cats)
}

// DescribeCategory returns a human description for the category.
func DescribeCategory(category string) string {
	if d, ok := categoryDescriptions[category]; ok {
		return d
	}
	return "Category: " + category
}
