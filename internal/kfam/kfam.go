// Package kfam is a client for the Kubeflow access management API served by
// the profiles-kfam service.
package kfam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"k8s.io/client-go/rest"

	"kfctl-e2e/pkg/logging"
)

const (
	DefaultNamespace = "kubeflow"
	DefaultService   = "profiles-kfam"
	DefaultPort      = 8081

	DefaultProfile = "testprofile"
	DefaultOwner   = "user1@kubeflow.org"

	profilesPath = "/kfam/v1/profiles"
	bindingsPath = "/kfam/v1/bindings"
)

// Profile is the request body of a profile creation.
type Profile struct {
	Metadata ProfileMetadata `json:"metadata"`
	Spec     ProfileSpec     `json:"spec"`
}

type ProfileMetadata struct {
	Name string `json:"name"`
}

type ProfileSpec struct {
	Owner Subject `json:"owner"`
}

// Subject is a user or group.
type Subject struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// Binding grants a subject a role in a namespace.
type Binding struct {
	User              Subject `json:"user"`
	ReferredNamespace string  `json:"referredNamespace"`
	RoleRef           Subject `json:"RoleRef,omitempty"`
	Status            string  `json:"status,omitempty"`
}

type bindingList struct {
	Bindings []Binding `json:"bindings"`
}

// Client talks to the API at BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// MaxElapsed bounds VerifyProfile's retries.
	MaxElapsed time.Duration
	// RetryInterval is the first pause between VerifyProfile attempts.
	RetryInterval time.Duration
}

// NewClient creates a client for baseURL using httpClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		HTTPClient:    httpClient,
		MaxElapsed:    2 * time.Minute,
		RetryInterval: time.Second,
	}
}

// NewServiceProxyClient reaches the service through the API server's service
// proxy of the cluster in config.
func NewServiceProxyClient(config *rest.Config, namespace, service string, port int) (*Client, error) {
	httpClient, err := rest.HTTPClientFor(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client for cluster: %w", err)
	}
	return NewClient(ServiceProxyURL(config.Host, namespace, service, port), httpClient), nil
}

// ServiceProxyURL returns the API server path proxying to service:port.
func ServiceProxyURL(host, namespace, service string, port int) string {
	return fmt.Sprintf("%s/api/v1/namespaces/%s/services/%s:%d/proxy",
		strings.TrimSuffix(host, "/"), namespace, service, port)
}

// CreateProfile creates a profile owned by the user owner.
func (c *Client) CreateProfile(ctx context.Context, name, owner string) error {
	body, err := json.Marshal(Profile{
		Metadata: ProfileMetadata{Name: name},
		Spec:     ProfileSpec{Owner: Subject{Kind: "User", Name: owner}},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+profilesPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if _, err := c.do(req); err != nil {
		return fmt.Errorf("failed to create profile %s: %w", name, err)
	}
	logging.Info("KFAM", "Created profile %s owned by %s", name, owner)
	return nil
}

// Bindings lists all role bindings.
func (c *Client) Bindings(ctx context.Context) ([]Binding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+bindingsPath, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	var list bindingList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode bindings: %w", err)
	}
	return list.Bindings, nil
}

// VerifyProfile retries until a binding refers to the namespace of profile
// name or MaxElapsed passes.
func (c *Client) VerifyProfile(ctx context.Context, name string) error {
	b := backoff.NewExponentialBackOff()
	if c.RetryInterval > 0 {
		b.InitialInterval = c.RetryInterval
	}
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = c.MaxElapsed

	return backoff.RetryNotify(
		func() error {
			bindings, err := c.Bindings(ctx)
			if err != nil {
				return err
			}
			for _, binding := range bindings {
				if binding.ReferredNamespace == name {
					logging.Info("KFAM", "Profile %s is bound to %s", name, binding.User.Name)
					return nil
				}
			}
			return fmt.Errorf("no binding refers to namespace %s", name)
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			logging.Warn("KFAM", "Profile %s not verified: %v; retrying in %s", name, err, d)
		})
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
