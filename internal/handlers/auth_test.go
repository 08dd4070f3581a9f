package handlers

import (
	"net/http"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
)

func (suite *HandlerTestSuite) registerPayload(email string) map[string]string {
	return map[string]string{
		"first_name": "Grace",
		"last_name":  "Hopper",
		"email":      email,
		"password":   "supersecret",
	}
}

func (suite *HandlerTestSuite) TestRegister_Success() {
	w := suite.request(http.MethodPost, "/api/auth/register", suite.registerPayload("grace@example.com"), nil)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response dto.AuthResponse
	suite.decode(w, &response)
	suite.Require().NotNil(response.User)
	suite.Equal("grace@example.com", response.User.Email)
	suite.Require().NotNil(response.User.Role)
	suite.Equal(constants.RoleMember, response.User.Role.Slug)
	suite.Require().NotNil(response.Token)
	suite.NotEmpty(response.Token.AccessToken)
	suite.Equal("Bearer", response.Token.TokenType)
}

func (suite *HandlerTestSuite) TestRegister_DuplicateEmail() {
	w := suite.request(http.MethodPost, "/api/auth/register", suite.registerPayload("member@example.com"), nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestRegister_InvalidRequest() {
	w := suite.request(http.MethodPost, "/api/auth/register", map[string]string{"email": "not-an-email"}, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestRegister_ShortPassword() {
	payload := suite.registerPayload("short@example.com")
	payload["password"] = "short"

	w := suite.request(http.MethodPost, "/api/auth/register", payload, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestLogin_Success() {
	w := suite.request(http.MethodPost, "/api/auth/register", suite.registerPayload("grace@example.com"), nil)
	suite.Require().Equal(http.StatusCreated, w.Code)

	w = suite.request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "GRACE@example.com",
		"password": "supersecret",
	}, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.AuthResponse
	suite.decode(w, &response)
	suite.Require().NotNil(response.Token)
	suite.NotEmpty(response.Token.AccessToken)
}

func (suite *HandlerTestSuite) TestLogin_WrongPassword() {
	suite.request(http.MethodPost, "/api/auth/register", suite.registerPayload("grace@example.com"), nil)

	w := suite.request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "wrong-password",
	}, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidCredentials, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestLogin_RateLimited() {
	payload := map[string]string{"email": "nobody@example.com", "password": "whatever1"}
	for i := 0; i < 3; i++ {
		w := suite.request(http.MethodPost, "/api/auth/login", payload, nil)
		suite.Equal(http.StatusUnauthorized, w.Code)
	}

	w := suite.request(http.MethodPost, "/api/auth/login", payload, nil)
	suite.Equal(http.StatusTooManyRequests, w.Code)
	suite.Equal(apierrors.ErrCodeTooManyRequests, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestMe() {
	w := suite.request(http.MethodGet, "/api/auth/me", nil, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code)

	var response dto.UserDetailDTO
	suite.decode(w, &response)
	suite.Equal(suite.member.ID, response.ID)
	suite.Equal("member@example.com", response.Email)
}

func (suite *HandlerTestSuite) TestMe_Unauthorized() {
	w := suite.request(http.MethodGet, "/api/auth/me", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apierrors.ErrCodeUnauthorized, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestMe_GarbageToken() {
	w := suite.requestWithToken(http.MethodGet, "/api/auth/me", "not-a-jwt")
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidToken, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestMe_BlockedUser() {
	suite.Require().NoError(suite.db.Model(&models.User{}).
		Where("id = ?", suite.member.ID).
		Update("status", models.UserStatusBlocked).Error)

	w := suite.request(http.MethodGet, "/api/auth/me", nil, suite.member)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(apierrors.ErrCodeAccountDisabled, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestLogout_RevokesToken() {
	token, err := suite.tokens.Issue(suite.member)
	suite.Require().NoError(err)

	do := func(method, url string) int {
		w := suite.requestWithToken(method, url, token.AccessToken)
		return w.Code
	}

	suite.Equal(http.StatusOK, do(http.MethodGet, "/api/auth/me"))
	suite.Equal(http.StatusOK, do(http.MethodPost, "/api/auth/logout"))
	suite.Equal(http.StatusUnauthorized, do(http.MethodGet, "/api/auth/me"))
}

func (suite *HandlerTestSuite) TestRefresh_IssuesNewTokenAndRevokesOld() {
	token, err := suite.tokens.Issue(suite.member)
	suite.Require().NoError(err)

	w := suite.requestWithToken(http.MethodPost, "/api/auth/refresh", token.AccessToken)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.AuthResponse
	suite.decode(w, &response)
	suite.Require().NotNil(response.Token)
	suite.NotEqual(token.AccessToken, response.Token.AccessToken)

	suite.Equal(http.StatusUnauthorized, suite.requestWithToken(http.MethodGet, "/api/auth/me", token.AccessToken).Code)
	suite.Equal(http.StatusOK, suite.requestWithToken(http.MethodGet, "/api/auth/me", response.Token.AccessToken).Code)
}
