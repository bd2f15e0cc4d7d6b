package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/resilience"
)

// pageSize is the largest listing page the API serves.
const pageSize = 100

type RedditConfig struct {
	BaseURL  string
	TokenURL string
	Timeout  time.Duration
	Policy   resilience.Policy
}

// Reddit reads /r/<community>/new through the OAuth API with a password
// grant token that is refreshed when it expires.
type Reddit struct {
	client  *http.Client
	baseURL string
	policy  resilience.Policy
	logger  *slog.Logger
}

var _ Source = (*Reddit)(nil)

func NewReddit(creds Credentials, cfg RedditConfig) *Reddit {
	base := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &userAgentTransport{
			agent: creds.UserAgent,
			next: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := &passwordSource{
		ctx: tokenCtx,
		conf: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		username: creds.Username,
		password: creds.Password,
	}
	client := oauth2.NewClient(tokenCtx, oauth2.ReuseTokenSource(nil, src))
	client.Timeout = cfg.Timeout
	return &Reddit{
		client:  client,
		baseURL: cfg.BaseURL,
		policy:  cfg.Policy,
		logger:  slog.Default().With("component", "reddit"),
	}
}

// Fetch pages through the listing until limit posts are collected or the
// listing ends. Failures wrap ErrFetch.
func (r *Reddit) Fetch(ctx context.Context, community string, limit int) ([]post.Post, error) {
	var (
		posts []post.Post
		after string
		pages int
	)
	for limit <= 0 || len(posts) < limit {
		n := pageSize
		if limit > 0 && limit-len(posts) < n {
			n = limit - len(posts)
		}
		var page listing
		err := r.policy.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = r.page(ctx, community, n, after)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: r/%s page %d: %w", apperrors.ErrFetch, community, pages+1, err)
		}
		pages++
		for _, child := range page.Data.Children {
			p, err := child.Data.ToPost()
			if err != nil {
				r.logger.Warn("skipping listing record", "error", err)
				continue
			}
			posts = append(posts, p)
		}
		after = page.Data.After
		if after == "" || len(page.Data.Children) == 0 {
			break
		}
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	r.logger.Info("fetched posts", "community", community, "posts", len(posts), "pages", pages)
	return posts, nil
}

type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data RawPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *Reddit) page(ctx context.Context, community string, n int, after string) (listing, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(n))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}
	endpoint := fmt.Sprintf("%s/r/%s/new?%s", r.baseURL, url.PathEscape(community), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return listing{}, resilience.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
			return listing{}, resilience.Permanent(fmt.Errorf("token request rejected: %w", err))
		}
		return listing{}, fmt.Errorf("requesting listing: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return listing{}, resilience.Permanent(err)
		}
		return listing{}, err
	}
	var page listing
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return listing{}, fmt.Errorf("decoding listing: %w", err)
	}
	return page, nil
}

type passwordSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func (s *passwordSource) Token() (*oauth2.Token, error) {
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

// userAgentTransport sets the User-Agent the API requires on every request,
// token requests included.
type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(req)
}
