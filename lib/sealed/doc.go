// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption for snapshot files. Snapshots
// carry process command lines, which can include secrets passed as
// arguments, so a snapshot written for someone else can be sealed to
// their age public keys before it leaves the machine.
//
// It wraps filippo.io/age with the operations telescene needs:
// generate a keypair, parse recipients and identities, seal bytes to
// recipients, and open sealed bytes with identities. Sealed data is the
// binary age format, recognizable by [IsSealed].
package sealed
