// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package stress

import "runtime"

// pinThread locks the calling goroutine to its OS thread. CPU affinity is
// not available on this platform.
func pinThread(cpu int) error {
	if cpu >= 0 {
		runtime.LockOSThread()
	}
	return nil
}
