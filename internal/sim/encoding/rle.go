// Package encoding packs cell-kind grids for the wire.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"railnet.ai/internal/sim/rail/model"
)

// Run is one stretch of identical kinds.
type Run struct {
	Kind model.Kind
	Len  int
}

// Runs collapses kinds into maximal runs, in order.
func Runs(kinds []model.Kind) []Run {
	var out []Run
	for _, k := range kinds {
		if n := len(out); n > 0 && out[n-1].Kind == k {
			out[n-1].Len++
			continue
		}
		out = append(out, Run{Kind: k, Len: 1})
	}
	return out
}

// EncodeKinds writes kinds as base64 of (kind, run length) uvarint pairs.
func EncodeKinds(kinds []model.Kind) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	for _, r := range Runs(kinds) {
		n := binary.PutUvarint(tmp[:], uint64(r.Kind))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(r.Len))
		buf.Write(tmp[:n])
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeKinds reverses EncodeKinds. It refuses unknown kinds and grids
// longer than limit cells.
func DecodeKinds(b64 string, limit int) ([]model.Kind, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []model.Kind
	for i := 0; i < len(raw); {
		k, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if k > 0xFF || !model.Kind(k).Valid() {
			return nil, fmt.Errorf("unknown kind %d", k)
		}
		if run == 0 || uint64(len(out))+run > uint64(limit) {
			return nil, fmt.Errorf("run of %d overflows %d cells", run, limit)
		}
		for j := uint64(0); j < run; j++ {
			out = append(out, model.Kind(k))
		}
	}
	return out, nil
}
