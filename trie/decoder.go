package trie

import (
	"errors"
	"fmt"
)

var errDecodeInvalid = errors.New("trie: invalid encoded node")

// decodeNode reconstructs a node from its RLP encoding, the inverse of
// hasher.go's encoding. hash is attached to the result's nodeFlag so the
// node's identity survives a round trip through storage without
// re-hashing it. RLP lists carry either 2 elements (a shortNode: HP key
// plus value-or-child) or 17 (a fullNode: 16 children plus a branch
// value), so that count alone picks the node shape.
func decodeNode(hash hashNode, data []byte) (node, error) {
	if len(data) == 0 {
		return nil, errDecodeInvalid
	}
	elems, err := splitRLPList(data)
	if err != nil {
		return nil, fmt.Errorf("trie decode: %w", err)
	}
	switch len(elems) {
	case 2:
		return decodeShort(hash, elems)
	case 17:
		return decodeFull(hash, elems)
	default:
		return nil, fmt.Errorf("%w: expected 2 or 17 elements, got %d", errDecodeInvalid, len(elems))
	}
}

func decodeShort(hash hashNode, elems [][]byte) (node, error) {
	key := compactToHex(elems[0])
	flags := nodeFlag{hash: hash}

	if hasTerm(key) {
		return &shortNode{Key: key, Val: valueNode(elems[1]), flags: flags}, nil
	}
	child, err := decodeRef(elems[1])
	if err != nil {
		return nil, err
	}
	return &shortNode{Key: key, Val: child, flags: flags}, nil
}

func decodeFull(hash hashNode, elems [][]byte) (node, error) {
	n := &fullNode{flags: nodeFlag{hash: hash}}
	for i := 0; i < 16; i++ {
		if len(elems[i]) == 0 {
			continue
		}
		child, err := decodeRef(elems[i])
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	if len(elems[16]) > 0 {
		n.Children[16] = valueNode(elems[16])
	}
	return n, nil
}

// decodeRef decodes one child slot of a parent node's RLP list: a
// 32-byte slot is a hash reference, anything shorter is an inlined
// child node encoded in place (the usual RLP "small value" optimization
// trie nodes rely on to avoid a hash-and-fetch for tiny subtrees).
func decodeRef(data []byte) (node, error) {
	switch {
	case len(data) == 0:
		return nil, nil
	case len(data) == 32:
		return hashNode(data), nil
	default:
		return decodeNode(nil, data)
	}
}

// splitRLPList splits a top-level RLP list into its raw element byte
// slices, leaving each element still RLP-encoded (decodeRef needs the
// header intact to tell a hash from an inlined node).
func splitRLPList(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, errDecodeInvalid
	}
	prefix := data[0]
	if prefix < 0xc0 {
		return nil, fmt.Errorf("%w: expected list, got string prefix 0x%02x", errDecodeInvalid, prefix)
	}

	var payload []byte
	if prefix <= 0xf7 {
		length := int(prefix - 0xc0)
		if 1+length > len(data) {
			return nil, errDecodeInvalid
		}
		payload = data[1 : 1+length]
	} else {
		lenLen := int(prefix - 0xf7)
		if 1+lenLen > len(data) {
			return nil, errDecodeInvalid
		}
		length := decodeBigEndianLen(data[1 : 1+lenLen])
		if 1+lenLen+length > len(data) {
			return nil, errDecodeInvalid
		}
		payload = data[1+lenLen : 1+lenLen+length]
	}

	var elems [][]byte
	for len(payload) > 0 {
		elem, rest, err := splitOneElement(payload)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		payload = rest
	}
	return elems, nil
}

// splitOneElement peels one RLP element off the front of data. String
// elements return their content only; list elements return the full
// encoding (header included) since decodeRef needs to recurse into it.
func splitOneElement(data []byte) (content, rest []byte, err error) {
	if len(data) == 0 {
		return nil, nil, errDecodeInvalid
	}
	prefix := data[0]

	switch {
	case prefix <= 0x7f:
		return data[:1], data[1:], nil

	case prefix == 0x80:
		return nil, data[1:], nil

	case prefix <= 0xb7:
		length := int(prefix - 0x80)
		if 1+length > len(data) {
			return nil, nil, errDecodeInvalid
		}
		return data[1 : 1+length], data[1+length:], nil

	case prefix <= 0xbf:
		lenLen := int(prefix - 0xb7)
		if 1+lenLen > len(data) {
			return nil, nil, errDecodeInvalid
		}
		length := decodeBigEndianLen(data[1 : 1+lenLen])
		end := 1 + lenLen + length
		if end > len(data) {
			return nil, nil, errDecodeInvalid
		}
		return data[1+lenLen : end], data[end:], nil

	case prefix <= 0xf7:
		length := int(prefix - 0xc0)
		end := 1 + length
		if end > len(data) {
			return nil, nil, errDecodeInvalid
		}
		return data[:end], data[end:], nil

	default:
		lenLen := int(prefix - 0xf7)
		if 1+lenLen > len(data) {
			return nil, nil, errDecodeInvalid
		}
		length := decodeBigEndianLen(data[1 : 1+lenLen])
		end := 1 + lenLen + length
		if end > len(data) {
			return nil, nil, errDecodeInvalid
		}
		return data[:end], data[end:], nil
	}
}

func decodeBigEndianLen(b []byte) int {
	var n int
	for _, c := range b {
		n = n<<8 | int(c)
	}
	return n
}
