package delegate

import (
	"encoding/binary"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/cespare/xxhash/v2"
)

// HashNode returns the identity hash of n given the hashes of its children.
func HashNode(n domain.GraphNode, children []uint64) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(n.Kind)
	_, _ = d.Write([]byte{0})

	if n.Key != "" {
		_, _ = d.WriteString("key:")
		_, _ = d.WriteString(n.Key)
		return d.Sum64()
	}

	// encoding/json sorts map keys, so this is canonical.
	props, _ := domain.MarshalValue(n.Props)
	_, _ = d.Write(props)
	_, _ = d.Write([]byte{0})

	var buf [8]byte
	for _, c := range children {
		binary.LittleEndian.PutUint64(buf[:], c)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
