package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/manno/shipmate/internal/fault"
)

// Harbor talks to the Harbor project API. A "project" in Harbor terms is the
// namespace that image repositories get pushed into, which is exactly the
// granularity the provisioning flow registers.
type Harbor struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *slog.Logger
}

func NewHarbor(baseURL, username, password string, logger *slog.Logger) (*Harbor, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("registry url is required: use --registry-url flag or REGISTRY_URL env var")
	}

	return &Harbor{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}, nil
}

// Host returns the registry host for use in image references.
func (h *Harbor) Host() string {
	if u, err := url.Parse(h.baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return h.baseURL
}

func (h *Harbor) Exists(ctx context.Context, name string) (bool, error) {
	u := fmt.Sprintf("%s/api/v2.0/projects?project_name=%s", h.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, fault.New(fault.Transient, "registry.exists", err)
	}
	h.auth(req)

	resp, err := h.http.Do(req)
	if err != nil {
		return false, fault.New(fault.Transient, "registry.exists", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, h.classify("registry.exists", resp.StatusCode)
	}
}

func (h *Harbor) Create(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]any{
		"project_name": name,
		"public":       false,
	})
	if err != nil {
		return fault.New(fault.Transient, "registry.create", err)
	}

	u := h.baseURL + "/api/v2.0/projects"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fault.New(fault.Transient, "registry.create", err)
	}
	req.Header.Set("Content-Type", "application/json")
	h.auth(req)

	resp, err := h.http.Do(req)
	if err != nil {
		return fault.New(fault.Transient, "registry.create", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		h.logger.Info("registry project created", "name", name)
		return nil
	case http.StatusConflict:
		// Lost a race against another creator; the project exists, which is
		// what we wanted.
		h.logger.Info("registry project already exists", "name", name)
		return nil
	default:
		return h.classify("registry.create", resp.StatusCode)
	}
}

func (h *Harbor) auth(req *http.Request) {
	if h.username != "" {
		req.SetBasicAuth(h.username, h.password)
	}
}

func (h *Harbor) classify(op string, status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fault.Newf(fault.Unauthorized, op, "registry responded with status %d", status)
	case http.StatusNotFound:
		return fault.Newf(fault.NotFound, op, "registry responded with status %d", status)
	case http.StatusBadRequest:
		return fault.Newf(fault.Validation, op, "registry rejected the request with status %d", status)
	default:
		return fault.Newf(fault.Transient, op, "registry responded with status %d", status)
	}
}
