package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
)

// stateDigest hashes everything that determines future rounds: the round
// counter, the port tables and every agent's position, memory and data.
func (w *World) stateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, w.round.Load())
	w.digestPorts(h, &tmp)
	w.digestAgents(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the current state digest.
func (w *World) Digest() string { return w.stateDigest() }

func (w *World) digestPorts(h hashWriter, tmp *[8]byte) {
	if w.grid.oriented {
		h.Write([]byte{1})
		return
	}
	h.Write([]byte{0})
	for _, nd := range w.grid.Nodes() {
		labels, dirs := nd.portTable()
		for i, p := range labels {
			digestWriteU64(h, tmp, uint64(p))
			h.Write([]byte{byte(dirs[i])})
		}
	}
}

func (w *World) digestAgents(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, uint64(len(w.agents)))
	for _, a := range w.agents {
		digestWriteI64(h, tmp, int64(a.id))
		if a.at != nil {
			digestWriteI64(h, tmp, int64(a.at.row))
			digestWriteI64(h, tmp, int64(a.at.col))
		}
		digestWriteU64(h, tmp, a.mem.Cycle)
		digestWriteU64(h, tmp, a.mem.Checkpoint)
		h.Write([]byte{byte(a.mem.Phase), boolByte(a.mem.Done)})
		if a.data != nil {
			b, err := json.Marshal(a.data)
			if err == nil {
				digestWriteU64(h, tmp, uint64(len(b)))
				h.Write(b)
			}
		}
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
