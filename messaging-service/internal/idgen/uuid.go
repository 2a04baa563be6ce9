package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// UUIDGenerator issues random v4 UUIDs for conversations.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("conversation id: %w", err)
	}
	return id.String(), nil
}
