package identity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatekeeper-events/gatekeeper/internal/access"
	"github.com/gatekeeper-events/gatekeeper/internal/identity"
	"github.com/gatekeeper-events/gatekeeper/internal/shared"
	_ "github.com/gatekeeper-events/gatekeeper/testing"
)

type stubRepo struct {
	byEmail map[string]*identity.User
}

func newStubRepo() *stubRepo {
	return &stubRepo{byEmail: make(map[string]*identity.User)}
}

func (s *stubRepo) CreateUser(ctx context.Context, user *identity.User) error {
	if _, ok := s.byEmail[user.Email]; ok {
		return shared.ErrEmailTaken
	}
	copied := *user
	s.byEmail[user.Email] = &copied
	return nil
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

type stubHook struct {
	created int
}

func (s *stubHook) UserCreated(ctx context.Context, userID uuid.UUID, email, displayName string) error {
	s.created++
	return nil
}

type stubAssigner struct {
	role access.Role
	err  error
	got  string
}

func (s *stubAssigner) AssignRoleWithCode(ctx context.Context, userID uuid.UUID, code string) (access.Role, error) {
	s.got = code
	if s.err != nil {
		return "", s.err
	}
	return s.role, nil
}

type fixture struct {
	router   http.Handler
	sessions *shared.SessionManager
	repo     *stubRepo
	hook     *stubHook
	assigner *stubAssigner
}

func newFixture(t *testing.T, assigner *stubAssigner) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")

	repo := newStubRepo()
	hook := &stubHook{}
	service := identity.NewService(repo, hook, nil)
	handler := identity.NewHandler(nil, service, assigner, sessions, csrf)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/auth", handler.MountRoutes)

	return &fixture{router: r, sessions: sessions, repo: repo, hook: hook, assigner: assigner}
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestSignupAssignsRole(t *testing.T) {
	fx := newFixture(t, &stubAssigner{role: access.RoleStaff})

	res := postJSON(t, fx.router, "/auth/signup",
		`{"email":"Ana@Example.com","password":"secretpass","display_name":"Ana Costa","access_code":"EQUIPE_2025"}`)

	require.Equal(t, http.StatusCreated, res.Code)
	assert.Contains(t, res.Body.String(), `"role":"staff"`)
	assert.Equal(t, "EQUIPE_2025", fx.assigner.got)
	assert.Equal(t, 1, fx.hook.created)

	// Email is stored lowercased.
	_, err := fx.repo.FindByEmail(context.Background(), "ana@example.com")
	assert.NoError(t, err)
}

func TestSignupInvalidCodeKeepsIdentity(t *testing.T) {
	fx := newFixture(t, &stubAssigner{err: access.ErrInvalidCode})

	res := postJSON(t, fx.router, "/auth/signup",
		`{"email":"ana@example.com","password":"secretpass","display_name":"Ana Costa","access_code":"WRONG"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	// The account exists and can retry the code later.
	_, err := fx.repo.FindByEmail(context.Background(), "ana@example.com")
	assert.NoError(t, err)
}

func TestSignupDuplicateEmail(t *testing.T) {
	fx := newFixture(t, &stubAssigner{role: access.RoleStaff})

	body := `{"email":"ana@example.com","password":"secretpass","display_name":"Ana","access_code":"EQUIPE_2025"}`
	res := postJSON(t, fx.router, "/auth/signup", body)
	require.Equal(t, http.StatusCreated, res.Code)

	res = postJSON(t, fx.router, "/auth/signup", body)
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestSignupValidation(t *testing.T) {
	fx := newFixture(t, &stubAssigner{role: access.RoleStaff})

	res := postJSON(t, fx.router, "/auth/signup",
		`{"email":"not-an-email","password":"short","display_name":"","access_code":""}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogin(t *testing.T) {
	fx := newFixture(t, &stubAssigner{role: access.RoleStaff})

	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, fx.repo.CreateUser(context.Background(), &identity.User{
		ID:           uuid.New(),
		Email:        "ana@example.com",
		PasswordHash: string(hashed),
	}))

	res := postJSON(t, fx.router, "/auth/login", `{"email":"ana@example.com","password":"correctpass"}`)
	assert.Equal(t, http.StatusOK, res.Code)

	res = postJSON(t, fx.router, "/auth/login", `{"email":"ana@example.com","password":"wrongpassword"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = postJSON(t, fx.router, "/auth/login", `{"email":"ghost@example.com","password":"whateverpass"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestMe(t *testing.T) {
	fx := newFixture(t, &stubAssigner{role: access.RoleStaff})

	user := &identity.User{ID: uuid.New(), Email: "ana@example.com", PasswordHash: "x"}
	require.NoError(t, fx.repo.CreateUser(context.Background(), user))

	// Anonymous requests are rejected.
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// A committed session cookie resolves to the stored account.
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	sess, err := fx.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser(user.ID.String())
	commit := httptest.NewRecorder()
	require.NoError(t, fx.sessions.Commit(context.Background(), commit, req, sess))
	cookies := commit.Result().Cookies()
	require.NotEmpty(t, cookies)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookies[0])
	res = httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), user.ID.String())
	assert.Contains(t, res.Body.String(), `"email":"ana@example.com"`)
}

func TestMeDeletedAccount(t *testing.T) {
	fx := newFixture(t, &stubAssigner{role: access.RoleStaff})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	sess, err := fx.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser(uuid.NewString())
	commit := httptest.NewRecorder()
	require.NoError(t, fx.sessions.Commit(context.Background(), commit, req, sess))

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(commit.Result().Cookies()[0])
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLogout(t *testing.T) {
	fx := newFixture(t, &stubAssigner{role: access.RoleStaff})

	res := postJSON(t, fx.router, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, res.Code)
}
