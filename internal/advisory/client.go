package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// CodeMatchFound is the only advisory code castctl acts on: the service
// found an exact package match and suggests a version for it.
const CodeMatchFound = "match-found"

// Advisory is one per-package entry of the suggestion service response.
type Advisory struct {
	Package string `json:"package"`
	Version string `json:"version"`
	Code    string `json:"code"`
}

// Suggestion is an upgrade the advisory service recommends: the suggested
// version is strictly greater than the installed one by semver precedence.
type Suggestion struct {
	Name      string
	Current   string
	Suggested string
}

// Client queries the remote suggestion service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a Client for the given service base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Suggestions asks the service which of the installed extensions have newer
// compatible versions for the given application version. An empty installed
// set returns immediately without a network call. Failures are not retried.
func (c *Client) Suggestions(ctx context.Context, appVersion string, installed map[string]string) ([]Suggestion, error) {
	if len(installed) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(installed))
	for name := range installed {
		names = append(names, name)
	}
	sort.Strings(names)

	q := url.Values{}
	q.Set("version", appVersion)
	for _, name := range names {
		q.Add("name", name)
	}
	reqURL := c.BaseURL + "/suggestions?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisory request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisory service returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("advisory response: %w", err)
	}
	advisories, err := normalize(body)
	if err != nil {
		return nil, fmt.Errorf("advisory response: %w", err)
	}

	var suggestions []Suggestion
	for _, a := range advisories {
		if a.Code != CodeMatchFound {
			continue
		}
		current, ok := installed[a.Package]
		if !ok {
			continue
		}
		if !newerThan(a.Version, current) {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Name:      a.Package,
			Current:   current,
			Suggested: a.Version,
		})
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Name < suggestions[j].Name })
	return suggestions, nil
}

// normalize folds the service's loose response shape into a flat slice:
// a single-candidate query may come back as a bare object instead of a
// one-element array. Nothing past this point branches on shape.
func normalize(body []byte) ([]Advisory, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var many []Advisory
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one Advisory
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return []Advisory{one}, nil
}

// newerThan reports whether suggested is strictly greater than current by
// semantic-version precedence. Manifest versions carry no "v" prefix; the
// semver package requires one. Unparseable versions never count as newer.
func newerThan(suggested, current string) bool {
	s := canonical(suggested)
	c := canonical(current)
	if !semver.IsValid(s) || !semver.IsValid(c) {
		return false
	}
	return semver.Compare(s, c) > 0
}

func canonical(v string) string {
	return "v" + strings.TrimPrefix(strings.TrimSpace(v), "v")
}
