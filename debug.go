// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build lockfree_debug

package lockfree

// debugChecks enables invariant assertions: nil slot dereference, double
// retirement, and concurrent Dequeue on an MPSC queue all panic.
const debugChecks = true
