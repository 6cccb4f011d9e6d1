package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "mleko", fold("Mléko"))
	assert.Equal(t, "kureci maso", fold("Kuřecí Maso"))
	assert.Equal(t, "plain", fold("plain"))
}

func TestSimilarity(t *testing.T) {
	// Identical strings share every trigram.
	assert.Equal(t, 1.0, similarity("mleko", "mleko"))

	// "mlk" and "mleko" share the two leading padded trigrams out of an
	// 8-trigram union, matching pg_trgm's similarity().
	assert.InDelta(t, 0.25, similarity("mlk", "mleko"), 1e-9)

	assert.Equal(t, 0.0, similarity("", "mleko"))
	assert.Equal(t, 0.0, similarity("xyz", "qqq"))
}

func TestSimilarityIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"mlk", "mleko"},
		{"farma", "farm"},
		{"kureci maso", "maso"},
	}
	for _, p := range pairs {
		assert.Equal(t, similarity(p[0], p[1]), similarity(p[1], p[0]), "%v", p)
	}
}
