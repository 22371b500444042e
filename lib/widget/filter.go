// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package widget

import (
	"strconv"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// filterRows keeps the rows whose "pid command" text fuzzily matches
// pattern, in their original order. Matching is case-insensitive. An
// empty pattern keeps every row.
func filterRows(rows []processRow, pattern string) []processRow {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return rows
	}
	runes := []rune(strings.ToLower(pattern))
	slab := util.MakeSlab(100*1024, 2048)

	var matched []processRow
	for _, row := range rows {
		text := util.ToChars([]byte(strconv.Itoa(row.PID) + " " + row.Command))
		result, _ := algo.FuzzyMatchV2(false, true, true, &text, runes, false, slab)
		if result.Start >= 0 && result.Score > 0 {
			matched = append(matched, row)
		}
	}
	return matched
}
