package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/TomerAmran/guess-the-performer-sub001/apierr"
	"github.com/TomerAmran/guess-the-performer-sub001/models"
	"github.com/TomerAmran/guess-the-performer-sub001/testutil"
)

const testSecret = "test-secret"

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(testutil.DB(t), testSecret, "Admin@Example.com", "provider-secret", testutil.Logger(t))
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	resp, err := svc.Register(ctx, &RegisterRequest{Name: "Clara", Email: " Clara@Example.com ", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Token == "" || resp.User.Email != "clara@example.com" {
		t.Fatalf("unexpected register response: %+v", resp.User)
	}
	if resp.User.PasswordHash == "correct horse" {
		t.Fatalf("password stored in clear")
	}

	_, err = svc.Register(ctx, &RegisterRequest{Name: "Clara", Email: "clara@example.com", Password: "another one"})
	wantCode(t, err, apierr.CodeConflict)
	_, err = svc.Register(ctx, &RegisterRequest{Name: "Short", Email: "short@example.com", Password: "1234567"})
	wantCode(t, err, apierr.CodeBadRequest)
	_, err = svc.Register(ctx, &RegisterRequest{Name: "Bad", Email: "not-an-email", Password: "long enough"})
	wantCode(t, err, apierr.CodeBadRequest)

	login, err := svc.Login(ctx, &LoginRequest{Email: "CLARA@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	session, err := svc.ParseToken(login.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if session.UserID != resp.User.ID || session.Email != "clara@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}

	_, err = svc.Login(ctx, &LoginRequest{Email: "clara@example.com", Password: "wrong password"})
	wantCode(t, err, apierr.CodeUnauthorized)
	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	wantCode(t, err, apierr.CodeUnauthorized)

	me, err := svc.Me(ctx, resp.User.ID)
	if err != nil || me.Name != "Clara" {
		t.Fatalf("Me = %+v, %v", me, err)
	}
	_, err = svc.Me(ctx, uuid.New())
	wantCode(t, err, apierr.CodeNotFound)
}

func TestParseTokenRejectsBadTokens(t *testing.T) {
	svc := newAuthService(t)
	user := &models.User{ID: uuid.New(), Email: "clara@example.com"}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := svc.ParseToken(token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	svc.now = func() time.Time { return now.Add(SessionTTL + time.Minute) }
	_, err = svc.ParseToken(token)
	wantCode(t, err, apierr.CodeUnauthorized)
	svc.now = func() time.Time { return now }

	other := NewAuthService(nil, "another-secret", "", "", testutil.Logger(t))
	forged, err := other.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	_, err = svc.ParseToken(forged)
	wantCode(t, err, apierr.CodeUnauthorized)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": user.ID.String()})
	signed, err := noExp.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = svc.ParseToken(signed)
	wantCode(t, err, apierr.CodeUnauthorized)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id": user.ID.String(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	signed, err = hs512.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = svc.ParseToken(signed)
	wantCode(t, err, apierr.CodeUnauthorized)

	_, err = svc.ParseToken("garbage")
	wantCode(t, err, apierr.CodeUnauthorized)
}

func TestProviderSignInUpsertsByEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)
	image := "https://example.com/clara.png"

	_, err := svc.ProviderSignIn(ctx, "wrong", &ProviderSignInRequest{Email: "clara@example.com"})
	wantCode(t, err, apierr.CodeUnauthorized)

	first, err := svc.ProviderSignIn(ctx, "provider-secret", &ProviderSignInRequest{Email: "clara@example.com", Name: "Clara"})
	if err != nil {
		t.Fatalf("ProviderSignIn: %v", err)
	}
	second, err := svc.ProviderSignIn(ctx, "provider-secret", &ProviderSignInRequest{Email: "Clara@example.com", Name: "Clara S.", Image: &image})
	if err != nil {
		t.Fatalf("ProviderSignIn again: %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Fatalf("second sign-in created a new user")
	}
	if second.User.Name != "Clara S." || second.User.Image == nil || *second.User.Image != image {
		t.Fatalf("profile not refreshed: %+v", second.User)
	}

	_, err = svc.Login(ctx, &LoginRequest{Email: "clara@example.com", Password: "anything at all"})
	wantCode(t, err, apierr.CodeUnauthorized)
}

func TestAdminEmailOnlyThroughProvider(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	_, err := svc.Register(ctx, &RegisterRequest{Name: "Mallory", Email: "ADMIN@example.com", Password: "long enough password"})
	wantCode(t, err, apierr.CodeForbidden)
	var n int64
	if err := svc.db.Model(&models.User{}).Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("users after refused register = %d, %v", n, err)
	}

	admin, err := svc.ProviderSignIn(ctx, "provider-secret", &ProviderSignInRequest{Email: "admin@example.com", Name: "Admin"})
	if err != nil {
		t.Fatalf("ProviderSignIn: %v", err)
	}
	session, err := svc.ParseToken(admin.Token)
	if err != nil || !svc.IsAdmin(session.Email) {
		t.Fatalf("provider admin session = %+v, %v", session, err)
	}
	_, err = svc.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "long enough password"})
	wantCode(t, err, apierr.CodeUnauthorized)
}

func TestProviderSignInDropsPreRegisteredPassword(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	squatter, err := svc.Register(ctx, &RegisterRequest{Name: "Mallory", Email: "clara@example.com", Password: "mallory knows this"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	owner, err := svc.ProviderSignIn(ctx, "provider-secret", &ProviderSignInRequest{Email: "clara@example.com", Name: "Clara"})
	if err != nil {
		t.Fatalf("ProviderSignIn: %v", err)
	}
	if owner.User.ID != squatter.User.ID {
		t.Fatalf("provider sign-in should reuse the row")
	}
	_, err = svc.Login(ctx, &LoginRequest{Email: "clara@example.com", Password: "mallory knows this"})
	wantCode(t, err, apierr.CodeUnauthorized)
}

func TestIsAdmin(t *testing.T) {
	svc := newAuthService(t)
	if !svc.IsAdmin("admin@example.com") || !svc.IsAdmin(" ADMIN@example.com") {
		t.Fatalf("admin email should match case-insensitively")
	}
	if svc.IsAdmin("someone@example.com") || svc.IsAdmin("") {
		t.Fatalf("non-admin accepted")
	}
	if NewAuthService(nil, testSecret, "", "", testutil.Logger(t)).IsAdmin("") {
		t.Fatalf("empty admin email must not match")
	}
}
