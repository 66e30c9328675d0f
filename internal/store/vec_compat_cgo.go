//go:build cgo

package store

// vecDistanceFunc is the function the real sqlite-vec extension
// registers for cosine distance (see init_vec.go).
const vecDistanceFunc = "vec_distance_cosine"

// initVecCompat is unused on the cgo build: real per-modality vec0
// collections are created directly against the sqlite-vec extension
// registered by init_vec.go.
func (s *Store) initVecCompat() error {
	return nil
}
