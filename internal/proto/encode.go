package proto

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/rastergraph/internal/document"
	"github.com/vk/rastergraph/internal/value"
)

// Encode produces the network's canonical byte encoding. Two compilations
// of the same document state encode byte-identically, which is the
// contract fingerprint-keyed caches rely on. Literal values appear as
// their content digests, so the encoding is deterministic but not
// invertible.
func (n *Network) Encode() ([]byte, error) {
	var buf bytes.Buffer

	putUint(&buf, uint64(len(n.Nodes)))
	for _, node := range n.Nodes {
		putString(&buf, string(node.Identity))
		putString(&buf, node.Type)

		putUint(&buf, uint64(len(node.Inputs)))
		for slot, in := range node.Inputs {
			ty, err := typeBytes(in.Type)
			if err != nil {
				return nil, fmt.Errorf("node %q input %d: %w", node.Identity, slot, err)
			}
			putBytes(&buf, ty)
			putString(&buf, in.Convert)
			if in.Ref != nil {
				buf.WriteByte('R')
				putUint(&buf, uint64(in.Ref.Index))
				putUint(&buf, uint64(in.Ref.Output))
				continue
			}
			buf.WriteByte('L')
			d, err := value.DigestValue(in.Literal)
			if err != nil {
				return nil, fmt.Errorf("node %q input %d: %w", node.Identity, slot, err)
			}
			buf.Write(d[:])
		}

		putUint(&buf, uint64(len(node.OutputTypes)))
		for i, out := range node.OutputTypes {
			ty, err := typeBytes(out)
			if err != nil {
				return nil, fmt.Errorf("node %q output %d: %w", node.Identity, i, err)
			}
			putBytes(&buf, ty)
		}
	}

	ids := make([]uint64, 0, len(n.Sources))
	for id := range n.Sources {
		ids = append(ids, uint64(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	putUint(&buf, uint64(len(ids)))
	for _, id := range ids {
		putUint(&buf, id)
		putUint(&buf, uint64(n.Sources[document.NodeID(id)]))
	}

	return buf.Bytes(), nil
}

// Fingerprint returns the digest of the canonical encoding, computed on
// first use. Networks are immutable, so the cached digest never goes
// stale.
func (n *Network) Fingerprint() (value.Digest, error) {
	if n.fingerprintSet {
		return n.fingerprint, nil
	}
	enc, err := n.Encode()
	if err != nil {
		return value.Digest{}, err
	}
	n.fingerprint = sha256.Sum256(enc)
	n.fingerprintSet = true
	return n.fingerprint, nil
}

// typeBytes encodes a type for the canonical stream. Capsule types have
// no JSON form; their registered name is stable and serves instead.
func typeBytes(t cty.Type) ([]byte, error) {
	if t.IsCapsuleType() {
		return []byte("capsule:" + t.FriendlyName()), nil
	}
	return ctyjson.MarshalType(t)
}

func putUint(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putString(buf *bytes.Buffer, s string) {
	putUint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func putBytes(buf *bytes.Buffer, b []byte) {
	putUint(buf, uint64(len(b)))
	buf.Write(b)
}
