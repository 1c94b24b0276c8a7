package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds per-scenario state for requests against a running server.
// Tokens come from the environment, as printed by cmd/seed.
type TestContext struct {
	BaseURL    string
	HTTPClient *http.Client

	tokens       map[string]string
	actor        string
	lastStatus   int
	lastBody     []byte
	lastDecoded  map[string]interface{}
	savedNumbers map[string]float64
}

func NewTestContext() *TestContext {
	baseURL := os.Getenv("E2E_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		tokens: map[string]string{
			"admin":    os.Getenv("E2E_ADMIN_TOKEN"),
			"employee": os.Getenv("E2E_EMPLOYEE_TOKEN"),
		},
		savedNumbers: map[string]float64{},
	}
}

func (tc *TestContext) Reset() {
	tc.actor = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastDecoded = nil
	tc.savedNumbers = map[string]float64{}
}

func (tc *TestContext) ActAs(role string) error {
	tok, ok := tc.tokens[role]
	if !ok {
		return fmt.Errorf("unknown actor %q", role)
	}
	if tok == "" {
		return fmt.Errorf("no token configured for %s; export E2E_%s_TOKEN", role, strings.ToUpper(role))
	}
	tc.actor = role
	return nil
}

func (tc *TestContext) SignOut() {
	tc.actor = ""
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) do(method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.actor != "" {
		req.Header.Set("Authorization", "Bearer "+tc.tokens[tc.actor])
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastDecoded = nil
	if len(tc.lastBody) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var decoded map[string]interface{}
		if err := json.Unmarshal(tc.lastBody, &decoded); err == nil {
			tc.lastDecoded = decoded
		}
	}
	return nil
}

func (tc *TestContext) GetLastStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastBody() []byte {
	return tc.lastBody
}

// GetResponseField resolves a dotted path such as "document_status.expired".
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	if tc.lastDecoded == nil {
		return nil, fmt.Errorf("last response was not a JSON object: %s", tc.lastBody)
	}
	var cur interface{} = tc.lastDecoded
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return cur, nil
}

func (tc *TestContext) SaveNumber(name string, v float64) {
	tc.savedNumbers[name] = v
}

func (tc *TestContext) SavedNumber(name string) (float64, bool) {
	v, ok := tc.savedNumbers[name]
	return v, ok
}
