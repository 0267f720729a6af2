package project

import (
	"fmt"

	"github.com/roach88/exprstate/internal/ir"
)

// CountTests returns how many of the unit tests pass, and the total.
func CountTests(tests []ir.UnitTest) (passing, total int) {
	for _, ut := range tests {
		if ut.Success {
			passing++
		}
	}
	return passing, len(tests)
}

// SummariseTests renders "n/m tests pass". It returns "" for no tests.
func SummariseTests(tests []ir.UnitTest) string {
	if len(tests) == 0 {
		return ""
	}
	passing, total := CountTests(tests)
	return fmt.Sprintf("%d/%d tests pass", passing, total)
}

// FailingFirst returns the tests with failures ahead of passes, each group
// keeping its original order.
func FailingFirst(tests []ir.UnitTest) []ir.UnitTest {
	out := make([]ir.UnitTest, 0, len(tests))
	for _, ut := range tests {
		if !ut.Success {
			out = append(out, ut)
		}
	}
	for _, ut := range tests {
		if ut.Success {
			out = append(out, ut)
		}
	}
	return out
}
