package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/portfolio/backend/internal/apperrors"
	"github.com/portfolio/backend/internal/logger"
)

const (
	DefaultGitHubAPIURL   = "https://api.github.com"
	DefaultGitHubRawURL   = "https://raw.githubusercontent.com"
	DefaultGitHubUsername = "flowprimedesign"

	showcaseRepoCount = 6
)

type GitHubUser struct {
	Login       string  `json:"login"`
	Name        *string `json:"name"`
	AvatarURL   string  `json:"avatar_url"`
	HTMLURL     string  `json:"html_url"`
	Bio         *string `json:"bio"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

type GitHubRepo struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	HTMLURL         string  `json:"html_url"`
	Description     *string `json:"description"`
	StargazersCount int     `json:"stargazers_count"`
	Language        *string `json:"language"`
	// WalkthroughGIF is set when the repo has a walkthrough.gif on main.
	WalkthroughGIF *string `json:"walkthrough_gif"`
}

type Showcase struct {
	User      GitHubUser   `json:"user"`
	Repos     []GitHubRepo `json:"repos"`
	FetchedAt time.Time    `json:"fetched_at"`
}

type GitHubOptions struct {
	Username   string
	Token      string
	CacheTTL   time.Duration
	APIURL     string
	RawURL     string
	HTTPClient *http.Client
}

// GitHubService builds the profile showcase and caches it for CacheTTL.
type GitHubService struct {
	opts GitHubOptions

	mu      sync.Mutex
	cached  *Showcase
	expires time.Time
	flights singleflight.Group
}

func NewGitHubService(opts GitHubOptions) *GitHubService {
	if opts.Username == "" {
		opts.Username = DefaultGitHubUsername
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultGitHubAPIURL
	}
	if opts.RawURL == "" {
		opts.RawURL = DefaultGitHubRawURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	opts.RawURL = strings.TrimRight(opts.RawURL, "/")
	return &GitHubService{opts: opts}
}

// Showcase returns the cached showcase, refreshing it once it expires.
// A failed profile fetch is an UpstreamError; a failed repo list yields no
// repos.
func (s *GitHubService) Showcase(ctx context.Context) (*Showcase, error) {
	s.mu.Lock()
	if s.cached != nil && time.Now().Before(s.expires) {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	v, err, _ := s.flights.Do("showcase", func() (interface{}, error) {
		showcase, err := s.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cached = showcase
		s.expires = time.Now().Add(s.opts.CacheTTL)
		s.mu.Unlock()
		return showcase, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Showcase), nil
}

func (s *GitHubService) fetch(ctx context.Context) (*Showcase, error) {
	user := url.PathEscape(s.opts.Username)
	log := logger.WithContext(map[string]interface{}{"component": "github", "username": s.opts.Username})

	var profile GitHubUser
	status, err := s.getJSON(ctx, fmt.Sprintf("%s/users/%s", s.opts.APIURL, user), &profile)
	if err != nil {
		log.WithFields(map[string]interface{}{"status": status, "error": err.Error()}).Warn("Failed to load GitHub profile")
		return nil, apperrors.Upstream(http.StatusBadGateway, "Failed to load GitHub profile", err)
	}

	var repos []GitHubRepo
	reposURL := fmt.Sprintf("%s/users/%s/repos?per_page=%d&sort=updated", s.opts.APIURL, user, showcaseRepoCount)
	if _, err := s.getJSON(ctx, reposURL, &repos); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to load GitHub repos")
		repos = []GitHubRepo{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range repos {
		g.Go(func() error {
			gif := fmt.Sprintf("%s/%s/%s/main/walkthrough.gif", s.opts.RawURL, user, url.PathEscape(repos[i].Name))
			if s.exists(gctx, gif) {
				repos[i].WalkthroughGIF = &gif
			}
			return nil
		})
	}
	_ = g.Wait()

	return &Showcase{User: profile, Repos: repos, FetchedAt: time.Now().UTC()}, nil
}

// getJSON returns the response status alongside any error; 0 means no
// response arrived.
func (s *GitHubService) getJSON(ctx context.Context, target string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.opts.Token != "" {
		req.Header.Set("Authorization", "token "+s.opts.Token)
	}

	start := time.Now()
	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		observeUpstream("github", 0, time.Since(start))
		return 0, err
	}
	defer resp.Body.Close()
	observeUpstream("github", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("github returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode github response: %w", err)
	}
	return resp.StatusCode, nil
}

func (s *GitHubService) exists(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false
	}
	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
