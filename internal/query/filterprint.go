// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import (
	"fmt"
	"strings"

	"github.com/gridlhq/flapjack/internal/document"
	"github.com/gridlhq/flapjack/internal/filter"
)

// filterFingerprint renders a filter tree to a deterministic string for
// cache-key hashing. It does not need to be human-readable, only stable
// for structurally identical trees.
func filterFingerprint(f filter.Filter) string {
	var sb strings.Builder
	writeFilterFingerprint(&sb, f)
	return sb.String()
}

func writeFilterFingerprint(sb *strings.Builder, f filter.Filter) {
	fmt.Fprintf(sb, "(%d:%s=%s..%s", f.Op, f.Field, fieldValuePrint(f.Value), fieldValuePrint(f.Max))
	for _, child := range f.Children {
		writeFilterFingerprint(sb, child)
	}
	sb.WriteByte(')')
}

func fieldValuePrint(v document.FieldValue) string {
	switch v.Kind {
	case document.KindText:
		return v.Text
	case document.KindInteger:
		return fmt.Sprintf("%d", v.Integer)
	case document.KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case document.KindDate:
		return v.Date.String()
	case document.KindFacet:
		return v.Facet
	default:
		return ""
	}
}
