package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"credit-signal-lab/internal/panel"
)

// PanelFingerprint hashes the date index and every column (sorted by name,
// values as IEEE-754 bits) so two runs can be checked for identical inputs.
func PanelFingerprint(p *panel.Panel) string {
	h := sha256.New()
	buf := make([]byte, 8)

	for _, d := range p.Dates() {
		binary.BigEndian.PutUint64(buf, uint64(d.Unix()))
		h.Write(buf)
	}

	names := p.Columns()
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		col, _ := p.Column(name)
		for _, v := range col {
			bits := math.Float64bits(v)
			if math.IsNaN(v) {
				bits = math.Float64bits(math.NaN())
			}
			binary.BigEndian.PutUint64(buf, bits)
			h.Write(buf)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
