// Package ident produces opaque session tokens from a cryptographically
// secure random source. Tokens are base-32 rendered and zero-padded to a
// fixed width, so they carry no embedded metadata. Uniqueness is
// probabilistic; callers that need distinctness must check upstream.
package ident

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	numberBase  = 32
	bitsPerChar = 5 // log2(numberBase)
)

type Generator struct {
	chars int
	bits  int
}

// Chars builds a generator emitting tokens of exactly n characters.
func Chars(n int) *Generator {
	return &Generator{chars: n, bits: n * bitsPerChar}
}

// Bits builds a generator with at least n bits of entropy, rounding the
// width up to a whole number of base-32 digits.
func Bits(n int) *Generator {
	chars := (n + bitsPerChar - 1) / bitsPerChar
	return &Generator{chars: chars, bits: chars * bitsPerChar}
}

func (g *Generator) CharCount() int { return g.chars }

func (g *Generator) BitCount() int { return g.bits }

// Next returns a fresh token. It never fails: crypto/rand.Int panics only
// when the platform entropy source is broken, which is unrecoverable anyway.
func (g *Generator) Next() string {
	max := new(big.Int).Lsh(big.NewInt(1), uint(g.bits))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(err)
	}

	id := n.Text(numberBase)
	if pad := g.chars - len(id); pad > 0 {
		id = strings.Repeat("0", pad) + id
	}
	return id
}
