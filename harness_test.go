package goAccount

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// mockUserStore keeps deep copies so engine mutations only land through
// Create and Save, as with a real database.
type mockUserStore struct {
	mu    sync.Mutex
	users map[string]*User

	failSave   error
	failFind   error
	createHook func(*User)
	saveCalls  int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]*User{}}
}

func cloneUser(u *User) *User {
	out := *u
	out.ActiveTokens = append([]string(nil), u.ActiveTokens...)
	out.Wishlist = append([]string(nil), u.Wishlist...)
	if u.EmailOTP != nil {
		v := *u.EmailOTP
		out.EmailOTP = &v
	}
	if u.EmailOTPIssuedAt != nil {
		v := *u.EmailOTPIssuedAt
		out.EmailOTPIssuedAt = &v
	}
	if u.OTPCooldownUntil != nil {
		v := *u.OTPCooldownUntil
		out.OTPCooldownUntil = &v
	}
	if u.ResetOTP != nil {
		v := *u.ResetOTP
		out.ResetOTP = &v
	}
	if u.Location != nil {
		v := *u.Location
		out.Location = &v
	}
	return &out
}

func (s *mockUserStore) conflict(u *User) error {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username {
			return ErrUsernameTaken
		}
		if other.Email == u.Email {
			return ErrEmailTaken
		}
	}
	return nil
}

func (s *mockUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createHook != nil {
		s.createHook(u)
	}
	if err := s.conflict(u); err != nil {
		return err
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *mockUserStore) find(match func(*User) bool) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFind != nil {
		return nil, s.failFind
	}
	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *mockUserStore) FindByID(_ context.Context, id string) (*User, error) {
	return s.find(func(u *User) bool { return u.ID == id })
}

func (s *mockUserStore) FindByUsername(_ context.Context, username string) (*User, error) {
	return s.find(func(u *User) bool { return u.Username == username })
}

func (s *mockUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	return s.find(func(u *User) bool { return u.Email == email })
}

func (s *mockUserStore) Save(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.failSave != nil {
		return s.failSave
	}
	if _, ok := s.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	if err := s.conflict(u); err != nil {
		return err
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *mockUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *mockUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *mockUserStore) get(t *testing.T, id string) *User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		t.Fatalf("user %s not stored", id)
	}
	return cloneUser(u)
}

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var mailCodeRe = regexp.MustCompile(`code is: <b>(\d+)</b>`)

func (m *fakeMailer) lastCode(t *testing.T) int {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	match := mailCodeRe.FindStringSubmatch(m.sent[len(m.sent)-1].HTML)
	if match == nil {
		t.Fatalf("no code in mail body: %s", m.sent[len(m.sent)-1].HTML)
	}
	code, _ := strconv.Atoi(match[1])
	return code
}

type fakeImageStore struct {
	mu      sync.Mutex
	uploads int
	deleted []string
	failUp  error
	failDel error
	nextID  int
}

func (s *fakeImageStore) Upload(_ context.Context, name, contentType string, data []byte) (Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUp != nil {
		return Image{}, s.failUp
	}
	s.uploads++
	s.nextID++
	id := "img-" + strconv.Itoa(s.nextID)
	return Image{URL: "https://cdn.test/" + id, StorageID: id}, nil
}

func (s *fakeImageStore) Delete(_ context.Context, storageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDel != nil {
		return s.failDel
	}
	s.deleted = append(s.deleted, storageID)
	return nil
}

type fakeGeocoder struct {
	addr Address
	err  error
}

func (g fakeGeocoder) ReverseGeocode(context.Context, float64, float64) (Address, error) {
	return g.addr, g.err
}

type harness struct {
	engine *Engine
	store  *mockUserStore
	mailer *fakeMailer
	images *fakeImageStore
	redis  *miniredis.Miniredis
	now    time.Time
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newHarnessWithConfig(t *testing.T, cfg Config) *harness {
	t.Helper()

	mr, rdb := newTestRedis(t)
	h := &harness{
		store:  newMockUserStore(),
		mailer: &fakeMailer{},
		images: &fakeImageStore{},
		redis:  mr,
		now:    time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithStore(h.store).
		WithMailer(h.mailer).
		WithImageStore(h.images).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	engine.clock = func() time.Time { return h.now }
	t.Cleanup(engine.Close)

	h.engine = engine
	return h
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithConfig(t, testConfig())
}

func (h *harness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func (h *harness) signup(t *testing.T, username, email, secret string) *AuthResult {
	t.Helper()
	res, err := h.engine.Signup(context.Background(), SignupRequest{
		Username:        username,
		Email:           email,
		Password:        secret,
		ConfirmPassword: secret,
	})
	if err != nil {
		t.Fatalf("signup %s failed: %v", username, err)
	}
	return res
}

// signupVerified creates and verifies an account and returns its signup token.
func (h *harness) signupVerified(t *testing.T, username, email, secret string) string {
	t.Helper()
	res := h.signup(t, username, email, secret)
	if _, err := h.engine.VerifyEmail(context.Background(), res.User.ID, h.mailer.lastCode(t)); err != nil {
		t.Fatalf("verify %s failed: %v", username, err)
	}
	return res.Token
}

func (h *harness) userIDOf(t *testing.T, token string) string {
	t.Helper()
	session, err := h.engine.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	return session.User.ID
}

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v error, got %v", kind, err)
	}
}
