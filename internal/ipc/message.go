// Package ipc implements the fixed-layout Message wire format and the
// bounded per-actor mailbox (spec sections 3 and 4.B). The Message Router
// (spec 4.C) lives in package process, since it needs direct access to the
// sender's and receiver's capability tables and process state; this package
// only owns the 48-byte ABI struct and the queue that stores it.
package ipc

import (
	"encoding/binary"

	"nanokern/internal/kernelerr"
)

// Size is the exact wire size of a Message, part of the guest ABI.
const Size = 48

// Message is the fixed 48-byte unit exchanged between actors:
// {label:u64, data:[u64;3], cap_grant:u64, cap_perms:u32, pad:u32}.
type Message struct {
	Label    uint64
	Data     [3]uint64
	CapGrant uint64
	CapPerms uint32
	Pad      uint32
}

// Encode writes m into its 48-byte little-endian wire representation.
func (m Message) Encode() [Size]byte {
	var buf [Size]byte
	binary.LittleEndian.PutUint64(buf[0:8], m.Label)
	binary.LittleEndian.PutUint64(buf[8:16], m.Data[0])
	binary.LittleEndian.PutUint64(buf[16:24], m.Data[1])
	binary.LittleEndian.PutUint64(buf[24:32], m.Data[2])
	binary.LittleEndian.PutUint64(buf[32:40], m.CapGrant)
	binary.LittleEndian.PutUint32(buf[40:44], m.CapPerms)
	binary.LittleEndian.PutUint32(buf[44:48], m.Pad)
	return buf
}

// Decode parses a 48-byte little-endian buffer into a Message. Returns
// kernelerr.ErrBadEncoding if b is not exactly Size bytes.
func Decode(b []byte) (Message, error) {
	if len(b) != Size {
		return Message{}, kernelerr.ErrBadEncoding
	}
	var m Message
	m.Label = binary.LittleEndian.Uint64(b[0:8])
	m.Data[0] = binary.LittleEndian.Uint64(b[8:16])
	m.Data[1] = binary.LittleEndian.Uint64(b[16:24])
	m.Data[2] = binary.LittleEndian.Uint64(b[24:32])
	m.CapGrant = binary.LittleEndian.Uint64(b[32:40])
	m.CapPerms = binary.LittleEndian.Uint32(b[40:44])
	m.Pad = binary.LittleEndian.Uint32(b[44:48])
	return m, nil
}
