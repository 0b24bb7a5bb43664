package vm

import "github.com/holiman/uint256"

// Memory is the EVM's lazily-grown, byte-addressable scratch space
// (spec §4.4). It always holds a whole number of 32-byte words; callers
// ask for growth in bytes and Resize rounds up.
type Memory struct {
	store []byte
}

func newMemory() *Memory { return &Memory{} }

// Len returns the current size of memory in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Resize grows memory to size bytes (a no-op if already that large or
// larger). The caller is responsible for having charged the quadratic
// expansion cost first (gas.go's memoryGasCost).
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) >= size {
		return
	}
	m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
}

// Set writes value into memory at offset; offset+len(value) must
// already be within bounds.
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes val as a big-endian 32-byte word at offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	b := val.Bytes32()
	copy(m.store[offset:offset+32], b[:])
}

// SetByte writes a single byte at offset (MSTORE8).
func (m *Memory) SetByte(offset uint64, b byte) {
	m.store[offset] = b
}

// GetCopy returns a fresh copy of memory[offset:offset+size].
func (m *Memory) GetCopy(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, m.store[offset:offset+size])
	return out
}

// GetPtr returns a direct reference into memory[offset:offset+size];
// callers must not retain it past the next mutating Memory call.
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Data returns the whole backing slice.
func (m *Memory) Data() []byte { return m.store }
