//go:build acceptance

package acceptance

import (
	"io"
	"net/http"
)

func (s *Suite) TestHealthEndpoint() {
	resp, env := s.call(s.jsonRequest(http.MethodGet, "/health", nil))

	s.Equal(http.StatusOK, resp.StatusCode, "Expected status 200")
	s.True(env.Success)
}

func (s *Suite) TestMetricsEndpoint() {
	s.login(s.register("Metrics", "metrics@example.com", "metrics", "secret").UserName, "secret")

	resp, err := http.Get(s.BaseURL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(body), "identity_auth_events_total")
}
