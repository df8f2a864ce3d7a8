// Пользователь сессии из access token (JWT HS256, claim sub)
package stamps

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrInvalidToken = errors.New("invalid access token")

type Status struct {
	Identity  string    `json:"identity"`
	SignedIn  bool      `json:"signedIn"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Provider holds the current identity and notifies subscribers on change.
// Subscribers only see the latest identity if they fall behind.
type Provider struct {
	secret []byte
	logger *zap.Logger

	mu      sync.Mutex
	current string
	expires time.Time
	subs    map[int]chan string
	nextSub int
}

func NewProvider(secret string, logger *zap.Logger) *Provider {
	return &Provider{
		secret: []byte(secret),
		logger: logger,
		subs:   map[int]chan string{},
	}
}

// SignIn validates the token and switches to its subject.
func (p *Provider) SignIn(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	p.set(claims.Subject, expires)
	return claims.Subject, nil
}

func (p *Provider) SignOut() {
	p.set("", time.Time{})
}

func (p *Provider) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Identity: p.current, SignedIn: p.current != "", ExpiresAt: p.expires}
}

func (p *Provider) Subscribe() (<-chan string, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan string, 1)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}

func (p *Provider) set(identity string, expires time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.expires = expires
	if identity == p.current {
		return
	}
	p.current = identity
	p.logger.Info("session changed", zap.Bool("signedIn", identity != ""))

	for _, ch := range p.subs {
		// старое значение заменяется новым
		select {
		case <-ch:
		default:
		}
		ch <- identity
	}
}
