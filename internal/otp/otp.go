// Package otp generates the one-time codes delivered during sign-up
// confirmation, forgot-password, MFA, and attribute verification.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Generator produces one-time codes.
type Generator interface {
	Code() string
}

var codeSpan = big.NewInt(9000) // codes are 4 digits, 1000-9999

// RandomGenerator draws codes from crypto/rand. Rejection sampling via
// big.Int avoids modulo bias.
type RandomGenerator struct{}

var _ Generator = RandomGenerator{}

// Code returns a random 4-digit code.
func (RandomGenerator) Code() string {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		panic(fmt.Sprintf("generate otp: %v", err)) // crypto/rand failure is unrecoverable
	}
	return fmt.Sprintf("%04d", n.Int64()+1000)
}

// Fixed returns a Generator that always produces code. Tests use it to
// make challenge flows deterministic.
func Fixed(code string) Generator {
	return fixed(code)
}

type fixed string

func (f fixed) Code() string { return string(f) }
