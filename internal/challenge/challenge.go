// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package challenge issues and verifies the arithmetic anti-bot puzzle.
//
// The original form lets the client echo back the value its answer must
// equal, which any scripted client can satisfy. Challenges issued here
// carry the expected sum inside a signed, short-lived token instead, so
// the answering party cannot influence it. Legacy submissions without a
// token still go through the echo comparison in the validator.
package challenge

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// DefaultTTL is how long an issued challenge stays answerable.
const DefaultTTL = 10 * time.Minute

// ErrInvalid is returned when a token is malformed, forged or reused
// under a different signing key.
var ErrInvalid = errors.New("invalid challenge token")

// ErrExpired is returned when a token's deadline has passed.
var ErrExpired = errors.New("challenge expired")

// ErrWrongAnswer is returned when the answer does not match the signed sum.
var ErrWrongAnswer = errors.New("wrong challenge answer")

// Challenge is one issued puzzle: two operands for display and a signed
// token the client returns with its answer.
type Challenge struct {
	Token string `json:"token"`
	A     int    `json:"a"`
	B     int    `json:"b"`
}

// payload is the signed content of a token. Serialized by securecookie,
// never visible to the client in clear form.
type payload struct {
	Nonce     string
	Sum       int
	ExpiresAt time.Time
}

// Generator issues and verifies signed challenges.
type Generator struct {
	codec *securecookie.SecureCookie
	ttl   time.Duration
}

// NewGenerator creates a Generator signing with the given key. An empty
// key gets a random one, which invalidates outstanding tokens on
// restart; fine for a single-process demo.
func NewGenerator(signingKey []byte, ttl time.Duration) *Generator {
	if len(signingKey) == 0 {
		signingKey = securecookie.GenerateRandomKey(32)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	codec := securecookie.New(signingKey, nil)
	codec.MaxAge(int(ttl.Seconds()))
	return &Generator{codec: codec, ttl: ttl}
}

// New issues a fresh puzzle: two random integers in [1,9] and a token
// signing their sum.
func (g *Generator) New() (*Challenge, error) {
	a := rand.IntN(9) + 1
	b := rand.IntN(9) + 1

	token, err := g.codec.Encode("challenge", payload{
		Nonce:     uuid.New().String(),
		Sum:       a + b,
		ExpiresAt: time.Now().Add(g.ttl),
	})
	if err != nil {
		return nil, err
	}

	return &Challenge{Token: token, A: a, B: b}, nil
}

// Verify checks the token's signature and deadline and compares the
// answer against the signed sum.
func (g *Generator) Verify(token string, answer float64) error {
	var p payload
	if err := g.codec.Decode("challenge", token, &p); err != nil {
		return ErrInvalid
	}
	if time.Now().After(p.ExpiresAt) {
		return ErrExpired
	}
	if answer != float64(p.Sum) {
		return ErrWrongAnswer
	}
	return nil
}
