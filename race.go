// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lockfree

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests whose payload handoff is ordered
// by atomics on a different variable than the payload itself.
const RaceEnabled = true
