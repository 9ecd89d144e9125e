// SPDX-License-Identifier: MIT

//go:build !unix

package gitx

import "os/exec"

// Without process groups the default Cancel kills git only; WaitDelay still
// bounds the wait on pipes held by its children.
func killProcessGroupOnCancel(*exec.Cmd) {}
