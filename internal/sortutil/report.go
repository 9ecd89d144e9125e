// SPDX-License-Identifier: MIT

// Package sortutil holds the deterministic orderings used for report output.
package sortutil

import (
	"sort"

	"github.com/skaphos/gitsync/internal/model"
)

// LessIndexPath orders by discovery index first, then by working tree path
// when two reports share an index.
func LessIndexPath(indexI int, pathI string, indexJ int, pathJ string) bool {
	if indexI == indexJ {
		return pathI < pathJ
	}
	return indexI < indexJ
}

// SortReports orders reports by discovery index, then working tree.
func SortReports(reports []model.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return LessIndexPath(reports[i].Index, reports[i].Location.WorkTree, reports[j].Index, reports[j].Location.WorkTree)
	})
}

