// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package trie_test

import (
	"fmt"
	"testing"

	"github.com/sigil-dev/lyph/internal/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrie_RoundTrip(t *testing.T) {
	tr := trie.New[int]()
	keys := []string{"heart", "hear", "he", "head", "lung", "lumen", "l", "aorta", "a"}

	handles := make(map[string]*trie.Node[int], len(keys))
	for i, k := range keys {
		handles[k] = tr.Put(k, i)
	}

	for i, k := range keys {
		n, ok := tr.Search(k)
		require.True(t, ok, "key %q", k)
		assert.Same(t, handles[k], n)
		assert.Equal(t, k, n.Key())

		v, ok := tr.Lookup(k)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestTrie_MissingKeys(t *testing.T) {
	tr := trie.New[string]()
	tr.Put("vessel", "v")

	_, ok := tr.Search("vesselx")
	assert.False(t, ok)
	_, ok = tr.Search("vex")
	assert.False(t, ok)
	_, ok = tr.Search("q")
	assert.False(t, ok)

	// "ves" lands mid-label, so it does not exist as a node.
	_, ok = tr.Search("ves")
	assert.False(t, ok)
}

func TestTrie_SplitCreatesForkWithoutPayload(t *testing.T) {
	tr := trie.New[int]()
	tr.Put("artery", 1)
	tr.Put("arteriole", 2)

	fork, ok := tr.Search("arter")
	require.True(t, ok)
	assert.False(t, fork.HasValue())

	_, ok = tr.Lookup("arter")
	assert.False(t, ok)

	v, ok := tr.Lookup("artery")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = tr.Lookup("arteriole")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTrie_InsertIsIdempotent(t *testing.T) {
	tr := trie.New[int]()
	a := tr.Insert("capillary")
	b := tr.Insert("capillary")
	assert.Same(t, a, b)

	tr.Insert("cap")
	c := tr.Insert("capillary")
	assert.Same(t, a, c)
	assert.Equal(t, "capillary", c.Key())
}

func TestTrie_PrefixKeyOfExisting(t *testing.T) {
	tr := trie.New[int]()
	tr.Put("vein", 1)
	n := tr.Put("ve", 2)

	got, ok := tr.Search("ve")
	require.True(t, ok)
	assert.Same(t, n, got)

	v, ok := tr.Lookup("vein")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTrie_Delete(t *testing.T) {
	tr := trie.New[int]()
	tr.Put("node", 1)

	assert.True(t, tr.Delete("node"))
	assert.False(t, tr.Delete("node"))
	assert.False(t, tr.Delete("missing"))

	_, ok := tr.Lookup("node")
	assert.False(t, ok)

	// The structure survives and can be reused.
	n, ok := tr.Search("node")
	require.True(t, ok)
	assert.False(t, n.HasValue())
}

func TestTrie_PrefixSearchOrdersByLength(t *testing.T) {
	tr := trie.New[string]()
	for _, k := range []string{"bladder wall", "bladder", "blood", "bladder neck", "bl"} {
		tr.Put(k, k)
	}

	got := keys(tr.PrefixSearch("bla", 0, 0))
	assert.Equal(t, []string{"bladder", "bladder neck", "bladder wall"}, got)

	got = keys(tr.PrefixSearch("bl", 0, 0))
	require.Len(t, got, 5)
	assert.Equal(t, "bl", got[0])
	assert.Equal(t, "blood", got[1])
}

func TestTrie_PrefixSearchMidLabel(t *testing.T) {
	tr := trie.New[int]()
	tr.Put("esophagus", 1)

	got := keys(tr.PrefixSearch("eso", 0, 0))
	assert.Equal(t, []string{"esophagus"}, got)

	assert.Empty(t, tr.PrefixSearch("esx", 0, 0))
	assert.Empty(t, tr.PrefixSearch("z", 0, 0))
}

func TestTrie_PrefixSearchEmptyPrefixSeesEverything(t *testing.T) {
	tr := trie.New[int]()
	tr.Put("b", 1)
	tr.Put("a", 2)

	got := keys(tr.PrefixSearch("", 0, 0))
	assert.ElementsMatch(t, []string{"a", "b"}, got)
}

func TestTrie_PrefixSearchLimits(t *testing.T) {
	tr := trie.New[int]()
	for i := range 50 {
		tr.Put(fmt.Sprintf("k%03d", i), i)
	}

	got := tr.PrefixSearch("k", 0, 0)
	assert.Len(t, got, trie.DefaultPostsort)

	got = tr.PrefixSearch("k", 5, 20)
	assert.Len(t, got, 5)

	got = tr.PrefixSearch("k", 40, 40)
	assert.Len(t, got, 40)
}

func TestTrie_WalkVisitsPayloadNodes(t *testing.T) {
	tr := trie.New[int]()
	for i, k := range []string{"abc", "abd", "ab", "x"} {
		tr.Put(k, i)
	}
	tr.Insert("unused")
	tr.Delete("x")

	var seen []string
	tr.Walk(func(n *trie.Node[int]) bool {
		seen = append(seen, n.Key())
		return true
	})
	assert.Equal(t, []string{"ab", "abc", "abd"}, seen)

	var count int
	tr.Walk(func(*trie.Node[int]) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func keys[V any](nodes []*trie.Node[V]) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key()
	}
	return out
}
