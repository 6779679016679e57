// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command lfstress runs the lock-free queue stress scenarios.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := CmdLfstress.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lfstress:", err)
		os.Exit(1)
	}
}
