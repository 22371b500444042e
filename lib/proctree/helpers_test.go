// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proctree

import "github.com/bureau-foundation/telescene/lib/owned"

// ownedInfo copies the fields of the leased process into info.
func ownedInfo(handle *owned.Handle[*Process], info *Info) bool {
	return owned.Do(handle, func(process *Process) { *info = process.Info() })
}
