package spaces

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

// MaskedDiscrete is a discrete space {0..n-1} where only indices whose mask
// entry is true are currently valid.
type MaskedDiscrete struct {
	n    int
	mask []bool
	rng  *rand.Rand
}

// NewMaskedDiscrete creates a space of size n. A nil mask, or one whose length
// differs from n, defaults to all-true. The mask is copied.
// A nil rng gets a private source seeded with 0; engines pass their own.
func NewMaskedDiscrete(n int, mask []bool, rng *rand.Rand) *MaskedDiscrete {
	if n < 0 {
		n = 0
	}
	m := make([]bool, n)
	if len(mask) == n {
		copy(m, mask)
	} else {
		for i := range m {
			m[i] = true
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	return &MaskedDiscrete{n: n, mask: m, rng: rng}
}

// MaskFromValues converts loosely typed values (decoded JSON, protobuf
// ListValue) into a mask. Any non-boolean element fails with ErrInvalidMask.
func MaskFromValues(values []any) ([]bool, error) {
	mask := make([]bool, len(values))
	for i, v := range values {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("element %d has type %T: %w", i, v, core.ErrInvalidMask)
		}
		mask[i] = b
	}
	return mask, nil
}

// N returns the size of the space.
func (s *MaskedDiscrete) N() int { return s.n }

// Mask returns a copy of the current mask.
func (s *MaskedDiscrete) Mask() []bool {
	out := make([]bool, len(s.mask))
	copy(out, s.mask)
	return out
}

// SetRand replaces the random source used by Sample.
func (s *MaskedDiscrete) SetRand(rng *rand.Rand) {
	if rng != nil {
		s.rng = rng
	}
}

// Values lists the valid indices in ascending order.
func (s *MaskedDiscrete) Values() []int {
	values := make([]int, 0, s.n)
	for i, ok := range s.mask {
		if ok {
			values = append(values, i)
		}
	}
	return values
}

// Sample draws uniformly among the valid indices.
func (s *MaskedDiscrete) Sample() (int, error) {
	values := s.Values()
	if len(values) == 0 {
		return 0, core.ErrEmptyActionSpace
	}
	return values[s.rng.Intn(len(values))], nil
}

// Contains reports whether x is in range and currently valid.
func (s *MaskedDiscrete) Contains(x int) bool {
	return x >= 0 && x < s.n && s.mask[x]
}

// SetMask replaces the mask. On a length mismatch the previous mask is kept.
func (s *MaskedDiscrete) SetMask(mask []bool) error {
	if len(mask) != s.n {
		return fmt.Errorf("mask length %d, want %d: %w", len(mask), s.n, core.ErrInvalidMask)
	}
	copy(s.mask, mask)
	return nil
}

// Len counts the valid indices.
func (s *MaskedDiscrete) Len() int {
	count := 0
	for _, ok := range s.mask {
		if ok {
			count++
		}
	}
	return count
}

// Equal compares size and mask. The random source is not compared.
func (s *MaskedDiscrete) Equal(other *MaskedDiscrete) bool {
	if other == nil || s.n != other.n {
		return false
	}
	for i := range s.mask {
		if s.mask[i] != other.mask[i] {
			return false
		}
	}
	return true
}

func (s *MaskedDiscrete) String() string {
	return fmt.Sprintf("MaskedDiscrete(%d)", s.n)
}
