// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"encoding/hex"

	"github.com/tchajed/marshal"
	"lukechampine.com/blake3"
)

// programKey returns a canonical encoding of m's program and initial
// state. Two machines with equal keys have identical state spaces.
func (m *machine) programKey() string {
	var b []byte
	b = marshal.WriteInt(b, uint64(len(m.locs)))
	for _, loc := range m.locs {
		b = marshal.WriteInt(b, uint64(len(loc)))
		b = marshal.WriteBytes(b, []byte(loc))
	}
	b = marshal.WriteInt(b, uint64(len(m.procs)))
	for i, p := range m.procs {
		b = marshal.WriteInt(b, uint64(p))
		b = marshal.WriteInt(b, uint64(len(m.code[i])))
		for _, in := range m.code[i] {
			b = marshal.WriteInt(b, uint64(in.Op))
			b = marshal.WriteInt(b, uint64(in.Dst))
			b = marshal.WriteInt(b, uint64(in.Src.Kind))
			b = marshal.WriteInt(b, uint64(in.Src.Imm))
			b = marshal.WriteInt(b, uint64(in.Src.Reg))
			b = marshal.WriteInt(b, uint64(in.loc))
		}
		for _, v := range m.initRegs[i] {
			b = marshal.WriteInt(b, uint64(v))
		}
	}
	for _, v := range m.initMem {
		b = marshal.WriteInt(b, uint64(v))
	}
	return string(b)
}

// fingerprint returns a short printable digest of a program key for
// log messages.
func fingerprint(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
