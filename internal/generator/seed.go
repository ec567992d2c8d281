package generator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/funvibe/diffsmith/internal/config"
	"github.com/funvibe/diffsmith/internal/rng"
)

// ErrBadSeed is wrapped by every seed parsing failure.
var ErrBadSeed = errors.New("bad seed")

// Seed identifies a program: a 64-bit value plus the feature tags that
// were enabled when it was generated. Its text form is "<value>" or
// "<value>-<tag>,<tag>".
type Seed struct {
	Value   uint64
	Vectors bool
	Unsafe  bool
}

// ParseSeed parses the text form of a seed.
func ParseSeed(s string) (Seed, error) {
	value, tags, _ := strings.Cut(strings.TrimSpace(s), "-")
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return Seed{}, fmt.Errorf("%w: %q: %v", ErrBadSeed, s, err)
	}
	seed := Seed{Value: v}
	if tags == "" {
		return seed, nil
	}
	for _, tag := range strings.Split(tags, ",") {
		switch tag {
		case config.TagVectors:
			seed.Vectors = true
		case config.TagUnsafe:
			seed.Unsafe = true
		default:
			return Seed{}, fmt.Errorf("%w: %q: unknown tag %q", ErrBadSeed, s, tag)
		}
	}
	return seed, nil
}

// Tags returns the enabled tags in canonical order.
func (s Seed) Tags() []string {
	var tags []string
	if s.Vectors {
		tags = append(tags, config.TagVectors)
	}
	if s.Unsafe {
		tags = append(tags, config.TagUnsafe)
	}
	return tags
}

func (s Seed) String() string {
	v := strconv.FormatUint(s.Value, 10)
	if tags := s.Tags(); len(tags) > 0 {
		return v + "-" + strings.Join(tags, ",")
	}
	return v
}

// SeedSource hands out fresh seeds for a fuzzing session.
type SeedSource struct {
	r       *rng.Rand
	vectors float64
	unsafe  float64
}

// NewSeedSource creates a source. A zero start value seeds from the clock.
// Each seed enables a tag with the given probability.
func NewSeedSource(start uint64, vectorsProb, unsafeProb float64) *SeedSource {
	if start == 0 {
		start = uint64(time.Now().UnixNano())
	}
	return &SeedSource{r: rng.New(start), vectors: vectorsProb, unsafe: unsafeProb}
}

// Next returns the next seed.
func (s *SeedSource) Next() Seed {
	return Seed{
		Value:   s.r.Uint64(),
		Vectors: s.r.Flip(s.vectors),
		Unsafe:  s.r.Flip(s.unsafe),
	}
}
