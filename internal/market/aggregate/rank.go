// Package aggregate reduces raw production rows into the ranked, top-K
// series drawn by the dashboard charts.
package aggregate

import "sort"

// MaxCategories is the number of categories drawn before the rest are
// folded into the Other bucket.
const MaxCategories = 10

// Bucket is one group of items sharing a key.
type Bucket[T any] struct {
	Key   string
	Total float64
	Items []T
}

// Ranked is the result of Rank: the K largest buckets followed by the
// remainder, both ordered by descending total.
type Ranked[T any] struct {
	Visible []Bucket[T]
	Rest    []Bucket[T]
}

// RestTotal sums the totals of every bucket outside the top K.
func (r Ranked[T]) RestTotal() float64 {
	var sum float64
	for _, b := range r.Rest {
		sum += b.Total
	}
	return sum
}

// IsVisible reports whether key made it into the top K.
func (r Ranked[T]) IsVisible(key string) bool {
	for _, b := range r.Visible {
		if b.Key == key {
			return true
		}
	}
	return false
}

// Rank groups items by key, sums value per group and keeps the k largest
// groups visible. Ties keep first-encounter order. A non-positive k keeps
// every group visible.
func Rank[T any](items []T, key func(T) string, value func(T) float64, k int) Ranked[T] {
	index := make(map[string]int, len(items))
	buckets := make([]Bucket[T], 0, len(items))
	for _, it := range items {
		name := key(it)
		i, ok := index[name]
		if !ok {
			i = len(buckets)
			index[name] = i
			buckets = append(buckets, Bucket[T]{Key: name})
		}
		buckets[i].Total += value(it)
		buckets[i].Items = append(buckets[i].Items, it)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Total > buckets[j].Total
	})

	if k <= 0 || k >= len(buckets) {
		return Ranked[T]{Visible: buckets}
	}
	return Ranked[T]{Visible: buckets[:k], Rest: buckets[k:]}
}
