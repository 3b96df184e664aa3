//go:build acceptance

package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

type session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type userView struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	UserName   string `json:"userName"`
	Avatar     string `json:"avatar"`
	CoverImage string `json:"coverImage"`
}

func waitForHealthy(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not healthy after %s", baseURL, timeout)
}

// call sends req and decodes the response envelope
func (s *Suite) call(req *http.Request) (*http.Response, envelope) {
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var env envelope
	s.Require().NoError(json.Unmarshal(body, &env), string(body))
	return resp, env
}

func (s *Suite) jsonRequest(method, path string, body any) *http.Request {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (s *Suite) multipartRequest(method, path string, fields map[string]string, files ...string) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(w.WriteField(k, v))
	}
	for _, field := range files {
		part, err := w.CreateFormFile(field, field+".png")
		s.Require().NoError(err)
		_, err = part.Write(pngHeader)
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())

	req, err := http.NewRequest(method, s.BaseURL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (s *Suite) register(fullName, email, userName, password string) userView {
	resp, env := s.call(s.multipartRequest(http.MethodPost, "/api/v1/users/register",
		map[string]string{"fullName": fullName, "email": email, "userName": userName, "password": password},
		"avatar", "coverImage",
	))
	s.Require().Equal(http.StatusCreated, resp.StatusCode, env.Message)

	var user userView
	s.Require().NoError(json.Unmarshal(env.Data, &user))
	return user
}

func (s *Suite) login(userName, password string) (*http.Response, session) {
	resp, env := s.call(s.jsonRequest(http.MethodPost, "/api/v1/users/login",
		map[string]string{"userName": userName, "password": password}))
	s.Require().Equal(http.StatusOK, resp.StatusCode, env.Message)

	var sess session
	s.Require().NoError(json.Unmarshal(env.Data, &sess))
	return resp, sess
}

func cookieValue(resp *http.Response, name string) (string, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}
