package idgen

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator issues message IDs. IDs carry the message timestamp and are
// monotonic within a millisecond, so ties on created_at still sort in send
// order.
type ULIDGenerator struct {
	entropy *ulid.LockedMonotonicReader
}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)},
	}
}

func (g *ULIDGenerator) Generate() (string, error) {
	return g.GenerateAt(time.Now())
}

func (g *ULIDGenerator) GenerateAt(t time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		return "", fmt.Errorf("message id: %w", err)
	}
	return id.String(), nil
}
