// Package accounts loads and generates the identities fed to the workflow.
package accounts

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/voidmaw/regflow/internal/workflow"
)

// Password charset classes. Every generated password contains at least one
// character from each class.
const (
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	symbolChars  = "!#$%&*+-2?@_"
	passwordLen  = 14
	allPassChars = lowerChars + upperChars + digitChars + symbolChars
)

// birthYear is fixed; the signup form only cares that the account is an
// adult.
const birthYear = 2000

// daysInMonth is indexed by month-1. February stays at 28; year 2000 is a
// leap year but 28 keeps every generated date valid regardless.
var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// GeneratorConfig controls identity generation.
type GeneratorConfig struct {
	// Domain is the catch-all mail domain new addresses are minted under.
	Domain string
	// UsernameSuffixDigits disambiguates generated usernames.
	UsernameSuffixDigits int
}

// DefaultGeneratorConfig returns the generation defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{Domain: "example.com", UsernameSuffixDigits: 4}
}

// Generator mints plausible account identities: faker-backed names, a
// catch-all email and a policy-compliant random password.
type Generator struct {
	cfg   GeneratorConfig
	faker *gofakeit.Faker
}

// NewGenerator builds a generator. Seed 0 gives non-deterministic output.
func NewGenerator(cfg GeneratorConfig, seed uint64) (*Generator, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("accounts: domain is required")
	}
	if cfg.UsernameSuffixDigits < 1 {
		cfg.UsernameSuffixDigits = 1
	}
	return &Generator{cfg: cfg, faker: gofakeit.New(seed)}, nil
}

// Generate mints n identities.
func (g *Generator) Generate(n int) ([]workflow.Account, error) {
	out := make([]workflow.Account, 0, n)
	for range n {
		a, err := g.generateOne()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (g *Generator) generateOne() (workflow.Account, error) {
	first := strings.ToLower(g.faker.FirstName())
	last := strings.ToLower(g.faker.LastName())
	suffix := g.faker.DigitN(uint(g.cfg.UsernameSuffixDigits))

	username := fmt.Sprintf("%s%s%s", first, last, suffix)
	email := fmt.Sprintf("%s.%s%s@%s", first, last, suffix, g.cfg.Domain)

	password, err := GeneratePassword(passwordLen)
	if err != nil {
		return workflow.Account{}, err
	}

	month := g.faker.Number(1, 12)
	day := g.faker.Number(1, daysInMonth[month-1])

	return workflow.Account{
		Email:     email,
		Username:  username,
		Password:  password,
		Birthdate: fmt.Sprintf("%02d/%02d/%d", month, day, birthYear),
	}, nil
}

// GeneratePassword builds a random password of the given length containing
// at least one lowercase, uppercase, digit and symbol character. Randomness
// comes from crypto/rand; these are real credentials.
func GeneratePassword(length int) (string, error) {
	if length < 4 {
		return "", fmt.Errorf("accounts: password length must be >= 4, got %d", length)
	}

	chars := make([]byte, 0, length)
	for _, class := range []string{lowerChars, upperChars, digitChars, symbolChars} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < length {
		c, err := randomChar(allPassChars)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates so the mandatory class characters are not predictably
	// placed at the front.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars), nil
}

func randomChar(class string) (byte, error) {
	i, err := randomInt(len(class))
	if err != nil {
		return 0, err
	}
	return class[i], nil
}

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("accounts: random source: %w", err)
	}
	return int(v.Int64()), nil
}
