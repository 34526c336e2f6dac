package tracker

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/grafana/dskit/flagext"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	util_http "github.com/akulov/framesweep/pkg/util/http"
)

const versionsPath = "/api/v1/versions"

type Config struct {
	BaseURL    string         `yaml:"base_url"`
	ScriptName string         `yaml:"script_name"`
	APIKey     flagext.Secret `yaml:"api_key"`
	Timeout    time.Duration  `yaml:"timeout"`
	RetryMax   int            `yaml:"retry_max"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.BaseURL, "tracker.base-url", "", "Base URL of the production tracker.")
	f.StringVar(&c.ScriptName, "tracker.script-name", "framesweep", "Script name used to authenticate against the tracker.")
	f.Var(&c.APIKey, "tracker.api-key", "API key used to authenticate against the tracker.")
	f.DurationVar(&c.Timeout, "tracker.timeout", 30*time.Second, "HTTP timeout when talking to the tracker.")
	f.IntVar(&c.RetryMax, "tracker.retry-max", 5, "The maximum number of retries for failed tracker requests.")
}

type Client struct {
	cfg        Config
	httpClient *retryablehttp.Client
}

func NewClient(cfg Config) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.HTTPClient.Timeout = cfg.Timeout

	return &Client{
		cfg:        cfg,
		httpClient: c,
	}
}

// FindVersions returns every version of the project that carries a frame
// path, ascending by creation time.
func (c *Client) FindVersions(ctx context.Context, projectID int) ([]Version, error) {
	url := fmt.Sprintf("%s%s?project_id=%d&has_frame_path=1&order=created_at", c.cfg.BaseURL, versionsPath, projectID)

	req, err := retryablehttp.NewRequest("get", url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "find versions")
	}
	req.Header.Set("X-Script-Name", c.cfg.ScriptName)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey.String())

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "find versions")
	}
	defer resp.Body.Close()

	if err := util_http.EnsureSuccessStatusCode(resp); err != nil {
		return nil, errors.Wrap(err, "find versions")
	}

	res := make([]Version, 0)
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errors.Wrap(err, "find versions")
	}

	return res, nil
}
