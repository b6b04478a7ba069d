package conto

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
)

// DistanceEstimator turns a delivery address into an estimated distance
// in miles from the shop. The production implementation would sit on a
// geocoding provider; pricing code only ever sees this interface.
type DistanceEstimator interface {
	EstimateMiles(ctx context.Context, street, city, state, zip string) (float64, error)
}

// RandomDistance is the stand-in estimator: a draw in [0, 10) that is
// deterministic per (seed, address), so re-quoting the same address
// yields the same distance within one deployment.
type RandomDistance struct {
	seed uint64
}

func NewRandomDistance(seed uint64) *RandomDistance {
	return &RandomDistance{seed: seed}
}

var _ DistanceEstimator = (*RandomDistance)(nil)

func (r *RandomDistance) EstimateMiles(_ context.Context, street, _, _ string, zip string) (float64, error) {
	h := fnv.New64a()
	h.Write([]byte(street))
	h.Write([]byte{0})
	h.Write([]byte(zip))

	var seedBytes [32]byte
	binary.LittleEndian.PutUint64(seedBytes[0:8], r.seed)
	binary.LittleEndian.PutUint64(seedBytes[8:16], h.Sum64())
	rng := rand.New(rand.NewChaCha8(seedBytes))

	return rng.Float64() * 10, nil
}
