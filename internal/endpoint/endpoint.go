// Package endpoint checks that a deployment's public endpoint serves
// requests, either behind Identity-Aware Proxy or behind the basic-auth login
// gateway.
package endpoint

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
	"k8s.io/apimachinery/pkg/util/wait"

	"kfctl-e2e/internal/api"
	"kfctl-e2e/pkg/logging"
)

const (
	// DefaultClientID is the OAuth client of the CI project's IAP.
	DefaultClientID = "29647740582-7meo6c7a9a76jvg54j0g2lv8lrsb4l8g.apps.googleusercontent.com"

	// AuthCookie is set by the login gateway on success.
	AuthCookie = "KUBEFLOW-AUTH-KEY"

	DefaultWait     = 15 * time.Minute
	DefaultInterval = 10 * time.Second
)

// URL returns the cloud endpoint of an app in project.
func URL(app, project string) string {
	return fmt.Sprintf("https://%s.endpoints.%s.cloud.goog", app, project)
}

// Login holds the basic-auth credentials kfctl writes to login.json.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoadLogin reads <appPath>/login.json.
func LoadLogin(appPath string) (*Login, error) {
	p := filepath.Join(appPath, "login.json")
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read login info: %w", err)
	}
	var l Login
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}
	if l.Username == "" || l.Password == "" {
		return nil, fmt.Errorf("%s has no username or password", p)
	}
	return &l, nil
}

// IDTokenSource returns a source of OpenID Connect tokens for audience
// using the application default credentials, or credentialsFile when set.
func IDTokenSource(ctx context.Context, audience, credentialsFile string) (oauth2.TokenSource, error) {
	var opts []idtoken.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	ts, err := idtoken.NewTokenSource(ctx, audience, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ID token source for %s: %w", audience, err)
	}
	return ts, nil
}

// Checker probes endpoints.
type Checker struct {
	HTTPClient *http.Client
	Interval   time.Duration
}

// NewChecker creates a checker. The endpoints use certificates that are
// still being provisioned, so verification is skipped when insecure is set.
func NewChecker(insecure bool) *Checker {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &Checker{
		HTTPClient: &http.Client{Transport: transport, Timeout: 30 * time.Second},
		Interval:   DefaultInterval,
	}
}

func (c *Checker) interval() time.Duration {
	if c.Interval <= 0 {
		return DefaultInterval
	}
	return c.Interval
}

// IAPReady polls url with a bearer token from ts until it answers 200.
func (c *Checker) IAPReady(ctx context.Context, url string, ts oauth2.TokenSource, timeout time.Duration) error {
	token, err := ts.Token()
	if err != nil {
		return fmt.Errorf("failed to get token for %s: %w", url, err)
	}
	return c.poll(ctx, url, timeout, func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, err
		}
		token.SetAuthHeader(req)
		return c.status(req)
	})
}

// BasicAuthReady waits for the login page, logs in and fetches the root page
// with the returned auth cookie.
func (c *Checker) BasicAuthReady(ctx context.Context, url string, login Login, timeout time.Duration) error {
	getURL := url + "/kflogin"
	err := c.poll(ctx, getURL, timeout, func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
		if err != nil {
			return 0, err
		}
		return c.status(req)
	})
	if err != nil {
		return err
	}

	logging.Info("Endpoint", "%s is ready, testing login API", getURL)
	postURL := url + "/apikflogin"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(login.Username, login.Password)
	req.Header.Set("x-from-login", "true")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request to %s failed: %w", postURL, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusResetContent {
		return fmt.Errorf("login at %s failed with status %d", postURL, resp.StatusCode)
	}

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == AuthCookie {
			cookie = ck
			break
		}
	}
	if cookie == nil {
		return fmt.Errorf("%s did not set cookie %s", postURL, AuthCookie)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	code, err := c.status(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("%s answered %d after login", url, code)
	}
	logging.Info("Endpoint", "Endpoint is ready for %s", url)
	return nil
}

func (c *Checker) status(req *http.Request) (int, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Checker) poll(ctx context.Context, url string, timeout time.Duration, request func(context.Context) (int, error)) error {
	attempt := 0
	lastState := "no response"
	err := wait.PollUntilContextTimeout(ctx, c.interval(), timeout, true, func(ctx context.Context) (bool, error) {
		attempt++
		logging.Info("Endpoint", "Trying url: %s, request number %d", url, attempt)
		code, err := request(ctx)
		if err != nil {
			lastState = err.Error()
			if strings.Contains(lastState, "certificate") {
				logging.Warn("Endpoint", "%s: SSL handshake error: %v", url, err)
			} else {
				logging.Info("Endpoint", "%s: not ready: %v", url, err)
			}
			return false, nil
		}
		lastState = fmt.Sprintf("status %d", code)
		if code != http.StatusOK {
			logging.Info("Endpoint", "%s: not ready, status %d", url, code)
			return false, nil
		}
		return true, nil
	})
	if err == nil {
		logging.Info("Endpoint", "Endpoint is ready for %s", url)
		return nil
	}
	if wait.Interrupted(err) {
		return &api.TimeoutError{Resource: "endpoint", Name: url, Timeout: timeout, LastState: lastState}
	}
	return err
}
