package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/sanaa/apps/api/echo"
	"github.com/trezcool/sanaa/core/user"
	"github.com/trezcool/sanaa/testutil"
)

func Test_userApi_signUp(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Taken", "taken@test.cd", user.RoleStudent)

	newUser := func(name, email, pwd, role string) []byte {
		return marchallObj(t, user.NewUser{Name: name, Email: email, Password: pwd, PasswordConfirm: pwd, Role: role})
	}

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":             "this field is required",
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			}),
		},
		{
			name: "short password", body: newUser("Hero", "hero@test.cd", "Sh0rt!", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "weak password", body: newUser("Hero", "hero@test.cd", "password", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
			}),
		},
		{
			name: "admin cannot sign up", body: newUser("Hero", "hero@test.cd", testutil.Password, user.RoleAdmin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role must be one of: student, teacher"}),
		},
		{
			name: "email taken", body: newUser("Hero", "TAKEN@test.cd", testutil.Password, ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/sign-up"
	}
	runHTTPTests(t, app, tests)

	t.Run("signed up", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/users/sign-up", "", newUser(" Hero ", "Hero@Test.cd", testutil.Password, user.RoleTeacher))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp echoapi.SignUpResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.User.ID)
		assert.Equal(t, "Hero", resp.User.Name)
		assert.Equal(t, "hero@test.cd", resp.User.Email)
		assert.Equal(t, user.RoleTeacher, resp.User.Role)
		assert.True(t, resp.User.IsActive)

		// the token authenticates the new user
		rec = app.do(http.MethodGet, "/v1/users/me", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero@test.cd", user.RoleStudent)
	naughty := testutil.CreateUser(t, app.usrRepo, "N Dog", "ndog@test.cd", user.RoleStudent)
	naughty.IsActive = false
	_, err := app.usrRepo.UpdateUser(context.Background(), naughty)
	require.NoError(t, err)

	login := func(email, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "invalid email", body: login("lol", "lol"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown email", body: login("lol@test.cd", testutil.Password), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name: "wrong password", body: login(student.Email, "Wr0ng!Passw0rd"), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name: "inactive user", body: login(naughty.Email, testutil.Password), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	runHTTPTests(t, app, tests)

	t.Run("logged in", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/users/login", "", login(" HERO@test.cd", testutil.Password))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.TokenResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
		require.NoError(t, err)
		assert.True(t, usr.LastLogin.Valid, "last login should be set")
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero@test.cd", user.RoleStudent)
	naughty := testutil.CreateUser(t, app.usrRepo, "N Dog", "ndog@test.cd", user.RoleStudent)
	naughtyToken := app.token(t, naughty)
	naughty.IsActive = false
	_, err := app.usrRepo.UpdateUser(context.Background(), naughty)
	require.NoError(t, err)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    app.conf.AppName,
			Subject:   student.ID,
			ExpiresAt: now.Add(app.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * app.conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Email:        student.Email,
		Role:         student.Role,
		IsStudent:    true,
	}
	unrefreshableToken, err := echoapi.GenerateToken(app.conf, unrefreshableClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Invalid token", token: "not-a-jwt", wantCode: http.StatusUnauthorized},
		{name: "Inactive user not allowed", token: naughtyToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/token-refresh"
	}
	runHTTPTests(t, app, tests)

	t.Run("Token refreshed", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/users/token-refresh", app.token(t, student))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// cannot guess new token.. just check that it's not empty
		var resp echoapi.TokenResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateUser(t, app.usrRepo, "Teacher", "teacher@test.cd", user.RoleTeacher)

	rec := app.do(http.MethodGet, "/v1/users/me", "")
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	rec = app.do(http.MethodGet, "/v1/users/me", app.token(t, teacher))
	require.Equal(t, http.StatusOK, rec.Code)
	var got user.User
	unmarshal(t, rec, &got)
	assert.Equal(t, teacher.ID, got.ID)
	assert.Equal(t, teacher.Email, got.Email)
	assert.Equal(t, user.RoleTeacher, got.Role)
	assert.NotContains(t, rec.Body.String(), "password")
}
