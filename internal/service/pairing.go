package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"airspace_fan/internal/models"
	"airspace_fan/internal/repository"
)

// DefaultTokenTTL is how long a paired client's token stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// pinHashKey is the settings key holding the bcrypt hash of the household PIN.
const pinHashKey = "pairing_pin_hash"

var (
	ErrInvalidPIN      = errors.New("invalid pin")
	ErrPairingDisabled = errors.New("pairing disabled: no pin set")
	ErrUnknownClient   = errors.New("client not paired")
	ErrInvalidToken    = errors.New("invalid token")
	ErrEmptyName       = errors.New("client name is empty")
)

// PairingService trades the household PIN for a signed client token.
type PairingService struct {
	prefs   repository.Prefs
	clients repository.Clients
	key     []byte
	ttl     time.Duration
}

func NewPairingService(prefs repository.Prefs, clients repository.Clients, signingKey string, ttl time.Duration) *PairingService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &PairingService{prefs: prefs, clients: clients, key: []byte(signingKey), ttl: ttl}
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
}

// SetPIN replaces the household PIN. Existing tokens stay valid.
func (s *PairingService) SetPIN(ctx context.Context, pin string) error {
	hash, err := hashPIN(pin)
	if err != nil {
		return err
	}
	return s.prefs.SetSetting(ctx, pinHashKey, hash)
}

// Pair checks the PIN, records a new client and returns its token.
func (s *PairingService) Pair(ctx context.Context, name, pin string) (string, models.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.Client{}, ErrEmptyName
	}
	hash, err := s.prefs.Setting(ctx, pinHashKey)
	if err != nil {
		return "", models.Client{}, err
	}
	if hash == "" {
		return "", models.Client{}, ErrPairingDisabled
	}
	if err := verifyPIN(hash, pin); err != nil {
		return "", models.Client{}, ErrInvalidPIN
	}

	c := models.Client{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	if err := s.clients.Create(ctx, c); err != nil {
		return "", models.Client{}, fmt.Errorf("create client: %w", err)
	}
	tok, err := s.issueToken(c.ID)
	if err != nil {
		return "", models.Client{}, err
	}
	return tok, c, nil
}

// ParseToken validates the token and returns the client id. Unpaired clients are rejected
// even while their token has not expired.
func (s *PairingService) ParseToken(ctx context.Context, accessToken string) (string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ClientID == "" {
		return "", ErrInvalidToken
	}

	c, err := s.clients.Get(ctx, claims.ClientID)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", ErrUnknownClient
	}
	return c.ID, nil
}

func (s *PairingService) Unpair(ctx context.Context, clientID string) error {
	return s.clients.Delete(ctx, clientID)
}

func (s *PairingService) Clients(ctx context.Context) ([]models.Client, error) {
	return s.clients.List(ctx)
}

func (s *PairingService) issueToken(clientID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   clientID,
		},
		ClientID: clientID,
	})
	return token.SignedString(s.key)
}

func hashPIN(pin string) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", errors.New("pin is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

func verifyPIN(hash, pin string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
}
