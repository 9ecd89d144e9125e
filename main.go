// SPDX-License-Identifier: MIT
package main

import "github.com/skaphos/gitsync/cmd/gitsync"

var execute = gitsync.Execute

func main() {
	execute()
}
