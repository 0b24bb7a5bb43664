package trie

// Nibble-path encoding.
//
// Trie keys are walked one nibble (4 bits) at a time, so internally a key
// is expanded from N bytes into 2N nibbles plus a trailing terminatorByte
// nibble that marks "this path ends in a value, not a branch". That
// expanded form is convenient for prefix comparisons but wasteful to
// store, so nodes persist it in the compact hex-prefix (HP) form from
// the Ethereum Yellow Paper, Appendix C, which folds the terminator and
// the odd/even parity of the nibble count into the top nibble of the
// first byte instead of spending a whole extra byte on them.

const terminatorByte = 16

// hasTerm reports whether a nibble sequence carries the trailing
// terminator nibble, i.e. whether it addresses a leaf rather than an
// extension.
func hasTerm(nibbles []byte) bool {
	return len(nibbles) > 0 && nibbles[len(nibbles)-1] == terminatorByte
}

// keybytesToHex expands a raw key into one nibble per entry, appending
// the terminator. Every stored leaf key starts life in this form.
func keybytesToHex(key []byte) []byte {
	out := make([]byte, len(key)*2+1)
	for i, b := range key {
		out[i*2] = b >> 4
		out[i*2+1] = b & 0x0f
	}
	out[len(out)-1] = terminatorByte
	return out
}

// hexToKeybytes is the inverse of keybytesToHex: it folds an even-length
// nibble sequence (terminator optional) back into raw key bytes. It
// panics on an odd-length sequence, which can only mean a caller handed
// it a path fragment instead of a full key.
func hexToKeybytes(nibbles []byte) []byte {
	if hasTerm(nibbles) {
		nibbles = nibbles[:len(nibbles)-1]
	}
	if len(nibbles)%2 != 0 {
		panic("hexToKeybytes: odd length hex key")
	}
	key := make([]byte, len(nibbles)/2)
	decodeNibbles(nibbles, key)
	return key
}

// decodeNibbles folds nibble pairs into bytes; dst must hold len(nibbles)/2
// entries.
func decodeNibbles(nibbles, dst []byte) {
	for i := 0; i < len(dst); i++ {
		dst[i] = nibbles[i*2]<<4 | nibbles[i*2+1]
	}
}

// hexToCompact packs an expanded nibble path (terminator optional) into
// its HP on-disk form. Flags live in the high nibble of byte 0:
// bit 5 set means the path ends in a value (leaf), bit 4 set means the
// nibble count was odd and the low nibble of byte 0 holds that leftover
// nibble instead of padding.
func hexToCompact(path []byte) []byte {
	var leaf byte
	if hasTerm(path) {
		leaf = 1
		path = path[:len(path)-1]
	}

	buf := make([]byte, len(path)/2+1)
	buf[0] = leaf << 5
	if len(path)%2 == 1 {
		buf[0] |= 1<<4 | path[0]
		path = path[1:]
	}
	decodeNibbles(path, buf[1:])
	return buf
}

// compactToHex is the inverse of hexToCompact, reconstructing the
// expanded nibble path (terminator included for leaves) from the on-disk
// HP bytes.
func compactToHex(compact []byte) []byte {
	if len(compact) == 0 {
		return compact
	}
	path := keybytesToHex(compact)
	path = path[:len(path)-1] // keybytesToHex's own terminator isn't the real one

	flags := path[0]
	skip := 2 - int(flags&1) // even length padded one nibble, odd length none
	path = path[skip:]
	if flags&2 == 0 {
		return path
	}
	leaf := make([]byte, len(path)+1)
	copy(leaf, path)
	leaf[len(leaf)-1] = terminatorByte
	return leaf
}

// prefixLen returns how many leading nibbles a and b share.
func prefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
