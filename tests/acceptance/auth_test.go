//go:build acceptance

package acceptance

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (s *Suite) TestRegister_Success() {
	user := s.register("Alice Doe", "Alice@Example.com", "alice", "secret")

	s.NotEmpty(user.ID)
	s.Equal("alice@example.com", user.Email)
	s.True(strings.HasPrefix(user.Avatar, s.Config.Media.Endpoint), user.Avatar)
	s.NotEmpty(user.CoverImage)

	var stored string
	err := s.Postgres.DB.QueryRow(`SELECT password_hash FROM users WHERE id = $1`, user.ID).Scan(&stored)
	s.Require().NoError(err)
	s.NotEqual("secret", stored)
}

func (s *Suite) TestRegister_Duplicate() {
	s.register("Alice Doe", "alice@example.com", "alice", "secret")

	resp, env := s.call(s.multipartRequest(http.MethodPost, "/api/v1/users/register",
		map[string]string{"fullName": "Other", "email": "other@example.com", "userName": "ALICE", "password": "secret"},
		"avatar",
	))
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.False(env.Success)
	s.Equal("User already exists", env.Message)
}

func (s *Suite) TestRegister_MissingAvatar() {
	resp, env := s.call(s.multipartRequest(http.MethodPost, "/api/v1/users/register",
		map[string]string{"fullName": "Bob", "email": "bob@example.com", "userName": "bob", "password": "secret"},
	))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Please provide an avatar", env.Message)
}

func (s *Suite) TestLogin_InvalidCredentials() {
	s.register("Carol", "carol@example.com", "carol", "secret")

	resp, env := s.call(s.jsonRequest(http.MethodPost, "/api/v1/users/login",
		map[string]string{"userName": "carol", "password": "wrong"}))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("Invalid user credentials", env.Message)

	resp, env = s.call(s.jsonRequest(http.MethodPost, "/api/v1/users/login",
		map[string]string{"userName": "nobody", "password": "secret"}))
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("User does not exist", env.Message)
}

func (s *Suite) TestCurrentUser_NoToken() {
	resp, env := s.call(s.jsonRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("Unauthorized request", env.Message)
}

func (s *Suite) TestCompleteFlow() {
	user := s.register("Dave Doe", "dave@example.com", "dave", "p1")

	loginResp, sess := s.login("dave", "p1")
	cookie, ok := cookieValue(loginResp, "refreshToken")
	s.Require().True(ok)
	s.Equal(sess.RefreshToken, cookie)

	resp, env := s.call(bearer(s.jsonRequest(http.MethodGet, "/api/v1/users/current-user", nil), sess.AccessToken))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var me userView
	s.Require().NoError(json.Unmarshal(env.Data, &me))
	s.Equal(user.ID, me.ID)

	resp, env = s.call(s.jsonRequest(http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": sess.RefreshToken}))
	s.Require().Equal(http.StatusOK, resp.StatusCode, env.Message)
	var rotated session
	s.Require().NoError(json.Unmarshal(env.Data, &rotated))
	s.NotEqual(sess.RefreshToken, rotated.RefreshToken)

	// the old refresh token was superseded by the rotation
	resp, env = s.call(s.jsonRequest(http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": sess.RefreshToken}))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("Refresh token is expired or used", env.Message)

	resp, _ = s.call(bearer(s.jsonRequest(http.MethodPost, "/api/v1/users/logout", nil), rotated.AccessToken))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	value, ok := cookieValue(resp, "refreshToken")
	s.True(ok)
	s.Empty(value)

	resp, _ = s.call(s.jsonRequest(http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": rotated.RefreshToken}))
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var stored *string
	err := s.Postgres.DB.QueryRow(`SELECT refresh_token FROM users WHERE id = $1`, user.ID).Scan(&stored)
	s.Require().NoError(err)
	s.True(stored == nil || *stored == "")
}

func (s *Suite) TestChangePassword() {
	s.register("Erin", "erin@example.com", "erin", "old-pass")
	_, sess := s.login("erin", "old-pass")

	resp, env := s.call(bearer(s.jsonRequest(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "wrong", "newPassword": "new-pass"}), sess.AccessToken))
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("Invalid old password", env.Message)

	resp, _ = s.call(bearer(s.jsonRequest(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "old-pass", "newPassword": "new-pass"}), sess.AccessToken))
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	s.login("erin", "new-pass")
}

func (s *Suite) TestUpdateAccountAndAvatar() {
	s.register("Frank", "frank@example.com", "frank", "secret")
	_, sess := s.login("frank", "secret")

	resp, env := s.call(bearer(s.jsonRequest(http.MethodPatch, "/api/v1/users/update-account",
		map[string]string{"fullName": "Frank Updated", "email": "frank2@example.com"}), sess.AccessToken))
	s.Require().Equal(http.StatusOK, resp.StatusCode, env.Message)
	var updated userView
	s.Require().NoError(json.Unmarshal(env.Data, &updated))
	s.Equal("Frank Updated", updated.FullName)
	s.Equal("frank2@example.com", updated.Email)

	resp, env = s.call(bearer(s.multipartRequest(http.MethodPatch, "/api/v1/users/avatar", nil, "avatar"), sess.AccessToken))
	s.Require().Equal(http.StatusOK, resp.StatusCode, env.Message)
	var withAvatar userView
	s.Require().NoError(json.Unmarshal(env.Data, &withAvatar))
	s.NotEqual(updated.Avatar, withAvatar.Avatar)

	// the cached projection was invalidated by the updates
	resp, env = s.call(bearer(s.jsonRequest(http.MethodGet, "/api/v1/users/current-user", nil), sess.AccessToken))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var me userView
	s.Require().NoError(json.Unmarshal(env.Data, &me))
	s.Equal("Frank Updated", me.FullName)
	s.Equal(withAvatar.Avatar, me.Avatar)
}

func (s *Suite) TestChannelProfileAndWatchHistory() {
	channel := s.register("Grace Channel", "grace@example.com", "grace", "secret")
	viewer := s.register("Heidi", "heidi@example.com", "heidi", "secret")

	_, err := s.Postgres.DB.Exec(
		`INSERT INTO subscriptions (id, subscriber_id, channel_id) VALUES ($1, $2, $3)`,
		uuid.NewString(), viewer.ID, channel.ID,
	)
	s.Require().NoError(err)

	first, second := uuid.NewString(), uuid.NewString()
	for _, id := range []string{first, second} {
		_, err := s.Postgres.DB.Exec(
			`INSERT INTO videos (id, owner_id, video_file, thumbnail, title) VALUES ($1, $2, 'v.mp4', 't.png', $3)`,
			id, channel.ID, "video "+id[:8],
		)
		s.Require().NoError(err)
	}
	_, err = s.Postgres.DB.Exec(`UPDATE users SET watch_history = $1 WHERE id = $2`,
		pq.Array([]string{second, first}), viewer.ID)
	s.Require().NoError(err)

	_, sess := s.login("heidi", "secret")

	resp, env := s.call(bearer(s.jsonRequest(http.MethodGet, "/api/v1/users/c/GRACE", nil), sess.AccessToken))
	s.Require().Equal(http.StatusOK, resp.StatusCode, env.Message)
	var profile struct {
		ID                string `json:"id"`
		SubscriberCount   int64  `json:"subscriberCount"`
		SubscribedToCount int64  `json:"subscribedToCount"`
		IsSubscribed      bool   `json:"isSubscribed"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &profile))
	s.Equal(channel.ID, profile.ID)
	s.Equal(int64(1), profile.SubscriberCount)
	s.Equal(int64(0), profile.SubscribedToCount)
	s.True(profile.IsSubscribed)

	resp, env = s.call(bearer(s.jsonRequest(http.MethodGet, "/api/v1/users/history", nil), sess.AccessToken))
	s.Require().Equal(http.StatusOK, resp.StatusCode, env.Message)
	var history []struct {
		ID    string `json:"id"`
		Owner *struct {
			UserName string `json:"userName"`
		} `json:"owner"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &history))
	s.Require().Len(history, 2)
	s.Equal(second, history[0].ID)
	s.Equal(first, history[1].ID)
	s.Require().NotNil(history[0].Owner)
	s.Equal("grace", history[0].Owner.UserName)

	resp, env = s.call(bearer(s.jsonRequest(http.MethodGet, "/api/v1/users/c/nobody", nil), sess.AccessToken))
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("channel does not exist", env.Message)
}
