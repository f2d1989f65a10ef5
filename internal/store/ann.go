package store

import (
	"math"
	"sort"

	"github.com/coder/hnsw"
)

// HNSW parameters.
const (
	annM        = 16
	annEfSearch = 40
	annMl       = 0.25
)

// annHit is a graph match before it is joined with its row.
type annHit struct {
	ID       string
	Distance float64
}

// annIndex is an in-memory cosine HNSW graph over chunk vectors, keyed by
// uint64 with a chunk id mapping on the side. Removal only drops the
// mapping and leaves an orphan node in the graph, because deleting nodes
// from coder/hnsw can break the graph when the last neighbour goes away.
// The owner serializes access.
type annIndex struct {
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

func newANNIndex(dims int) *annIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = annM
	graph.EfSearch = annEfSearch
	graph.Ml = annMl

	return &annIndex{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// add inserts or replaces the vector for id. Zero vectors have no cosine
// direction and are not indexed.
func (a *annIndex) add(id string, vec []float32) {
	a.remove(id)
	if isZeroVector(vec) {
		return
	}

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	key := a.nextKey
	a.nextKey++
	a.graph.Add(hnsw.MakeNode(key, normalized))
	a.idMap[id] = key
	a.keyMap[key] = id
}

func (a *annIndex) remove(id string) {
	if key, ok := a.idMap[id]; ok {
		delete(a.keyMap, key)
		delete(a.idMap, id)
	}
}

// search returns up to k live ids nearest to query, closest first.
func (a *annIndex) search(query []float32, k int) []annHit {
	if k <= 0 || len(a.idMap) == 0 || isZeroVector(query) {
		return []annHit{}
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	// Over-fetch so orphans do not crowd out live nodes.
	fetch := min(k+a.orphans(), a.graph.Len())
	nodes := a.graph.Search(q, fetch)

	hits := make([]annHit, 0, min(k, len(nodes)))
	for _, node := range nodes {
		id, ok := a.keyMap[node.Key]
		if !ok {
			continue
		}
		hits = append(hits, annHit{
			ID:       id,
			Distance: float64(a.graph.Distance(q, node.Value)),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func (a *annIndex) count() int { return len(a.idMap) }

func (a *annIndex) orphans() int { return a.graph.Len() - len(a.idMap) }

// needsCompaction reports whether orphans outnumber live nodes.
func (a *annIndex) needsCompaction() bool {
	return a.orphans() > 1000 && a.orphans() > len(a.idMap)
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
