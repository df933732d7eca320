// Package identity owns users and token validation. Every other service
// authenticates bearer tokens against it over the bus.
package identity

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"ecombus/internal/bus"
)

const RoleAdmin = "ROLE_ADMIN"
const RoleUser = "ROLE_USER"

var ErrInvalidToken = errors.New("identity: invalid token")

type User struct {
	ID        int      `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Password  string   `json:"password,omitempty"`
	Enabled   int      `json:"enabled"`
	Roles     []string `json:"roles"`
}

// Store is the persistence gateway for the user aggregate.
type Store interface {
	FindByID(id int) (User, error)
	FindByEmail(email string) (User, bool)
	Save(u User) (User, error)
	DeleteByID(id int) error
	FindAll() []User
}

type memoryStore struct {
	mu     sync.RWMutex
	nextID int
	users  map[int]User
}

func NewMemoryStore() Store {
	return &memoryStore{nextID: 1, users: make(map[int]User)}
}

func (s *memoryStore) FindByID(id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, bus.Reject(bus.StatusNotFound, "the user has not been found")
	}
	return u, nil
}

func (s *memoryStore) FindByEmail(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

func (s *memoryStore) Save(u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.nextID
		s.nextID++
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *memoryStore) DeleteByID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return bus.Reject(bus.StatusNotFound, "the user has not been found")
	}
	delete(s.users, id)
	return nil
}

func (s *memoryStore) FindAll() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

type claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 bearer tokens. The subject claim
// carries the user id.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenService) Issue(u User) (string, error) {
	now := t.now()
	c := claims{
		Roles: u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

func (t *TokenService) Parse(token string) (userID int, roles []string, err error) {
	if token == "" {
		return 0, nil, fmt.Errorf("%w: missing token", ErrInvalidToken)
	}
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tk.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithLeeway(time.Second*5))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return 0, nil, ErrInvalidToken
	}
	userID, err = strconv.Atoi(c.Subject)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, c.Roles, nil
}

type Service struct {
	store  Store
	tokens *TokenService
	logger *zap.SugaredLogger
}

func NewService(store Store, tokens *TokenService, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, tokens: tokens, logger: logger}
}

// Authenticate satisfies bus.Authenticator: it validates the token and
// resolves the principal for the duration of one delivery.
func (s *Service) Authenticate(token string) (*bus.Principal, error) {
	userID, roles, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindByID(userID); err != nil {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	return &bus.Principal{UserID: userID, Roles: roles}, nil
}

func (s *Service) Login(email, password string) (string, error) {
	u, ok := s.store.FindByEmail(email)
	if !ok || u.Password != password {
		return "", bus.Reject(bus.StatusUnauthorized, "bad credentials")
	}
	if u.Enabled == 0 {
		return "", bus.Reject(bus.StatusSuspended, "account suspended")
	}
	return s.tokens.Issue(u)
}

// CurrentUser resolves the principal's user record; suspended accounts get a
// distinct rejection so callers can tell them from missing users.
func (s *Service) CurrentUser(p *bus.Principal) (User, error) {
	u, err := s.store.FindByID(p.UserID)
	if err != nil {
		return User{}, err
	}
	if u.Enabled == 0 {
		return User{}, bus.Reject(bus.StatusSuspended, "account suspended")
	}
	u.Password = ""
	return u, nil
}

func (s *Service) AddUser(u User) (User, error) {
	if _, exists := s.store.FindByEmail(u.Email); exists {
		return User{}, bus.Reject(bus.StatusConflict, "email already exists")
	}
	u.ID = 0
	u.Enabled = 1
	if len(u.Roles) == 0 {
		u.Roles = []string{RoleUser}
	}
	stored, err := s.store.Save(u)
	if err != nil {
		return User{}, err
	}
	s.logger.Infof("identity: user %d created", stored.ID)
	return stored, nil
}

func (s *Service) DeleteUser(userID int) error {
	return s.store.DeleteByID(userID)
}

func (s *Service) SuspendUser(userID int) error {
	return s.setEnabled(userID, 0)
}

func (s *Service) ReactivateUser(userID int) error {
	return s.setEnabled(userID, 1)
}

func (s *Service) setEnabled(userID, enabled int) error {
	u, err := s.store.FindByID(userID)
	if err != nil {
		return err
	}
	u.Enabled = enabled
	_, err = s.store.Save(u)
	return err
}
