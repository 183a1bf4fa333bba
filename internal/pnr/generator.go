package pnr

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

const (
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultLength      = 6
	DefaultMaxAttempts = 10
)

// Registry answers whether a code has already been issued.
type Registry interface {
	PNRExists(ctx context.Context, pnr string) (bool, error)
}

type Generator struct {
	length      int
	maxAttempts int
	intN        func(n int) int
}

type Option func(*Generator)

func WithLength(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.length = n
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithSource replaces the random index source, mostly for tests.
func WithSource(intN func(n int) int) Option {
	return func(g *Generator) {
		g.intN = intN
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		length:      DefaultLength,
		maxAttempts: DefaultMaxAttempts,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a code the registry has not seen. It gives up with
// domain.ErrGenerationExhausted after maxAttempts collisions.
func (g *Generator) Generate(ctx context.Context, registry Registry) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code := g.draw()
		exists, err := registry.PNRExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check pnr: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrGenerationExhausted, g.maxAttempts)
}

func (g *Generator) draw() string {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteByte(Alphabet[g.intN(len(Alphabet))])
	}
	return b.String()
}
