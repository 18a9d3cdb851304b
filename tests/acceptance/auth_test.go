package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/lumeo/auth-core/internal/dto"
)

func (s *Suite) postJSON(path string, payload any) *http.Response {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	resp, err := http.Post(s.BaseURL+path, "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	return resp
}

func (s *Suite) register(email, password string) dto.LoginResponse {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: password,
	})
	defer resp.Body.Close()

	s.Require().Equal(http.StatusCreated, resp.StatusCode, "Registration should succeed")

	var loginResp dto.LoginResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&loginResp))
	return loginResp
}

func (s *Suite) TestRegister_Success() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var loginResp dto.LoginResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&loginResp))

	s.NotEmpty(loginResp.Token)
	s.NotEmpty(loginResp.RefreshToken)
	s.Equal("test@example.com", loginResp.User.Email)
	s.NotEmpty(loginResp.User.ID)
	s.True(loginResp.User.IsActive)
	s.Equal("active", loginResp.User.Status)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@example.com", "Password123")

	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Name:     "Other",
		Email:    "duplicate@example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Name:     "Test",
		Email:    "invalid-email",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_WeakPassword() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Name:     "Test",
		Email:    "weak@example.com",
		Password: "password",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_Success() {
	s.register("login@example.com", "Password123")

	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "login@example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var loginResp dto.LoginResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&loginResp))

	s.NotEmpty(loginResp.Token)
	s.NotEmpty(loginResp.RefreshToken)
	s.Equal("login@example.com", loginResp.User.Email)
	s.NotNil(loginResp.User.LastLogin)
}

func (s *Suite) TestLogin_InvalidCredentials() {
	s.register("wrongpw@example.com", "Password123")

	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "wrongpw@example.com",
		Password: "Password999",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	// Unknown email must be indistinguishable from a wrong password.
	resp2 := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "nonexistent@example.com",
		Password: "Password123",
	})
	defer resp2.Body.Close()

	s.Equal(http.StatusUnauthorized, resp2.StatusCode)

	var err1, err2 dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&err1))
	s.Require().NoError(json.NewDecoder(resp2.Body).Decode(&err2))
	s.Equal(err1.Message, err2.Message)
}

func (s *Suite) TestLogin_LockoutAfterFiveFailures() {
	s.register("lockout@example.com", "Password123")

	for i := 0; i < 5; i++ {
		resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
			Email:    "lockout@example.com",
			Password: "WrongPassword1",
		})
		resp.Body.Close()
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
	}

	// The correct password is rejected while the window is open.
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "lockout@example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusLocked, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.NotContains(errResp.Message, ":", "no unlock time or internal detail leaks")
}

func (s *Suite) TestRefresh_Success() {
	registered := s.register("refresh@example.com", "Password123")

	resp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var refreshResp dto.RefreshResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&refreshResp))
	s.NotEmpty(refreshResp.Token)
}

func (s *Suite) TestRefresh_SupersededTokenRejected() {
	registered := s.register("supersede@example.com", "Password123")

	// A second login replaces the stored refresh token.
	loginResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "supersede@example.com",
		Password: "Password123",
	})
	loginResp.Body.Close()
	s.Require().Equal(http.StatusOK, loginResp.StatusCode)

	resp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefresh_GarbageToken() {
	resp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{
		RefreshToken: "not-a-token",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogout_InvalidatesRefreshToken() {
	registered := s.register("logout@example.com", "Password123")

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/api/v1/auth/logout", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+registered.Token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// The refresh token from before the logout is dead.
	refreshResp := s.postJSON("/api/v1/auth/refresh", dto.RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	defer refreshResp.Body.Close()

	s.Equal(http.StatusUnauthorized, refreshResp.StatusCode)

	// Logout again with the still-valid access token: idempotent.
	req2, err := http.NewRequest(http.MethodPost, s.BaseURL+"/api/v1/auth/logout", nil)
	s.Require().NoError(err)
	req2.Header.Set("Authorization", "Bearer "+registered.Token)

	resp2, err := http.DefaultClient.Do(req2)
	s.Require().NoError(err)
	resp2.Body.Close()
	s.Equal(http.StatusOK, resp2.StatusCode)
}

func (s *Suite) TestLogout_RequiresAuth() {
	resp, err := http.Post(s.BaseURL+"/api/v1/auth/logout", "application/json", nil)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe() {
	registered := s.register("me@example.com", "Password123")

	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/api/v1/auth/me", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+registered.Token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var user dto.UserView
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))
	s.Equal("me@example.com", user.Email)
	s.Equal(registered.User.ID, user.ID)
}

func (s *Suite) TestAuditTrail_RecordsLoginOutcomes() {
	registered := s.register("audited@example.com", "Password123")

	failResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "audited@example.com",
		Password: "WrongPassword1",
	})
	failResp.Body.Close()

	var actions []string
	rows, err := s.Postgres.DB.Query(
		`SELECT action FROM audit_entries WHERE user_id = $1 ORDER BY created_at`,
		registered.User.ID,
	)
	s.Require().NoError(err)
	defer rows.Close()

	for rows.Next() {
		var action string
		s.Require().NoError(rows.Scan(&action))
		actions = append(actions, action)
	}
	s.Require().NoError(rows.Err())

	s.Contains(actions, "LOGIN_SUCCESS")
	s.Contains(actions, "LOGIN_FAILED")
}

func (s *Suite) TestAuditEndpoint_ForbiddenForRegularUsers() {
	registered := s.register("plain@example.com", "Password123")

	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/api/v1/audit/"+registered.User.ID, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+registered.Token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *Suite) TestAuditEndpoint_AdminCanReadTrail() {
	registered := s.register("promoted@example.com", "Password123")

	_, err := s.Postgres.DB.Exec(`UPDATE accounts SET role = 'admin' WHERE id = $1`, registered.User.ID)
	s.Require().NoError(err)

	// Re-login so the token carries the admin role.
	loginResp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{
		Email:    "promoted@example.com",
		Password: "Password123",
	})
	defer loginResp.Body.Close()
	s.Require().Equal(http.StatusOK, loginResp.StatusCode)

	var admin dto.LoginResponse
	s.Require().NoError(json.NewDecoder(loginResp.Body).Decode(&admin))

	req, err := http.NewRequest(http.MethodGet, s.BaseURL+"/api/v1/audit/"+registered.User.ID, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+admin.Token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var entries []map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&entries))
	s.NotEmpty(entries, "registration and logins leave audit entries")
}
