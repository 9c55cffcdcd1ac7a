package postgresadapter

import (
	"context"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const decisionIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// UUIDGenerator creates stable UUIDv4 identifiers for events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// NanoDecisionIDGenerator mints prefixed, URL-safe decision identifiers.
type NanoDecisionIDGenerator struct{}

func (NanoDecisionIDGenerator) NewDecisionID(_ context.Context) (string, error) {
	id, err := gonanoid.Generate(decisionIDAlphabet, 16)
	if err != nil {
		return "", err
	}
	return "dcsn_" + id, nil
}
