// SPDX-License-Identifier: MIT
package gitx

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimLineTerminator removes one trailing line terminator, either "\r\n" or "\n".
func TrimLineTerminator(output string) string {
	if strings.HasSuffix(output, "\r\n") {
		return output[:len(output)-2]
	}
	return strings.TrimSuffix(output, "\n")
}

// ParseBranch extracts the branch name from `git symbolic-ref --short HEAD`.
func ParseBranch(output string) (string, error) {
	branch := strings.TrimSpace(TrimLineTerminator(output))
	if branch == "" {
		return "", fmt.Errorf("empty branch name")
	}
	return branch, nil
}

// ParseCount parses the output of:
//
//	git rev-list --count <from>..<to>
//
// Anything other than a single non-negative integer is an error.
func ParseCount(output string) (int, error) {
	raw := strings.TrimSpace(output)
	if raw == "" {
		return 0, fmt.Errorf("unparseable count: empty output")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unparseable count %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
