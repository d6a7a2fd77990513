// Package manifest builds the per-guest verification codes attached to a booking.
package manifest

import (
	"chalet/shared/failure"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	// Alphabet has 32 symbols and leaves out 0, 1, I and O.
	Alphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength = 6

	MaxNameLength      = 200
	DefaultMaxAttempts = 64

	alphabetMask = len(Alphabet) - 1
)

var ErrCodeSpaceExhausted = errors.New("could not generate a unique guest code")

type Entry struct {
	Serial int
	Name   string
	Code   string
}

// ParseNames splits a newline separated guest list, trimming each line and dropping blanks.
func ParseNames(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	names := make([]string, 0, len(lines))

	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// ValidateNames rejects a guest list that is too long or has an oversized or blank entry.
func ValidateNames(names []string, maxGuests int) error {
	if maxGuests > 0 && len(names) > maxGuests {
		return failure.Validation("guest_names", fmt.Sprintf("at most %d guests are allowed", maxGuests)) //nolint:wrapcheck
	}

	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return failure.Validation("guest_names", fmt.Sprintf("guest %d has an empty name", i+1)) //nolint:wrapcheck
		}

		if utf8.RuneCountInString(name) > MaxNameLength {
			return failure.Validation("guest_names", fmt.Sprintf("guest %d name exceeds %d characters", i+1, MaxNameLength)) //nolint:wrapcheck
		}
	}

	return nil
}

type Generator struct {
	random      io.Reader
	maxAttempts int
}

func NewGenerator(maxAttempts int) *Generator {
	return NewGeneratorWithReader(rand.Reader, maxAttempts)
}

// NewGeneratorWithReader draws code symbols from random instead of crypto/rand.
func NewGeneratorWithReader(random io.Reader, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Generator{random: random, maxAttempts: maxAttempts}
}

// Code returns one random code. 256 is a multiple of 32, so masking keeps every symbol equally likely.
func (g *Generator) Code() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = Alphabet[int(b)&alphabetMask]
	}

	return string(buf), nil
}

// Generate assigns serials 1..N in input order and a code unique within the list to each name.
func (g *Generator) Generate(names []string) ([]Entry, error) {
	entries := make([]Entry, 0, len(names))
	used := make(map[string]struct{}, len(names))

	for i, name := range names {
		code, err := g.uniqueCode(used)
		if err != nil {
			return nil, err
		}

		used[code] = struct{}{}
		entries = append(entries, Entry{Serial: i + 1, Name: name, Code: code})
	}

	return entries, nil
}

func (g *Generator) uniqueCode(used map[string]struct{}) (string, error) {
	for range g.maxAttempts {
		code, err := g.Code()
		if err != nil {
			return "", failure.InternalError(err) //nolint:wrapcheck
		}

		if _, taken := used[code]; !taken {
			return code, nil
		}
	}

	return "", failure.InternalError(ErrCodeSpaceExhausted) //nolint:wrapcheck
}

// NormalizeCode upper-cases and trims a scanned code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the generated shape.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}

	for i := range len(code) {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}

	return true
}
