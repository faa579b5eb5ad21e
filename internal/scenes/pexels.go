package scenes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/media"
)

// StockVideo is a single Pexels search hit
type StockVideo struct {
	ID         int         `json:"id"`
	Duration   int         `json:"duration"`
	URL        string      `json:"url"`
	VideoFiles []VideoFile `json:"video_files"`
}

// VideoFile is one rendition of a stock video
type VideoFile struct {
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

type searchResponse struct {
	Videos []StockVideo `json:"videos"`
}

// PexelsClient searches and downloads portrait stock footage
type PexelsClient struct {
	baseURL    string
	apiKey     string
	perPage    int
	maxFactor  float64
	height     int
	httpClient *http.Client
}

// NewPexelsClient creates a client. height is the frame height renditions are matched against.
func NewPexelsClient(baseURL, apiKey string, perPage int, maxFactor float64, height int) *PexelsClient {
	if perPage <= 0 {
		perPage = 5
	}
	if maxFactor < 1 {
		maxFactor = 2
	}
	return &PexelsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		perPage:    perPage,
		maxFactor:  maxFactor,
		height:     height,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Search returns the hit whose duration is closest to targetMs.
// No hits is a NotFound error; rejected credentials are permanent.
func (c *PexelsClient) Search(ctx context.Context, query string, targetMs int64) (*StockVideo, error) {
	targetSecs := float64(targetMs) / 1000

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(c.perPage))
	params.Set("orientation", "portrait")
	params.Set("min_duration", strconv.Itoa(int(math.Ceil(targetSecs))))
	params.Set("max_duration", strconv.Itoa(int(math.Ceil(targetSecs*c.maxFactor))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos/search?"+params.Encode(), nil)
	if err != nil {
		return nil, apperrors.NewValidationError("build search request", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("pexels search", err)
	}
	defer resp.Body.Close()

	if err := statusError("pexels search", resp); err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewExternalError("decode pexels response", err)
	}

	best := closest(result.Videos, targetSecs)
	if best == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no stock video for %q", query), nil)
	}
	return best, nil
}

// Download streams link into dst
func (c *PexelsClient) Download(ctx context.Context, link, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return apperrors.NewValidationError("build download request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewExternalError("download stock video", err)
	}
	defer resp.Body.Close()

	if err := statusError("download stock video", resp); err != nil {
		return err
	}

	return media.WriteAtomic(dst, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return apperrors.NewIOError("create clip file", err)
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			f.Close()
			return apperrors.NewIOError("write clip file", err)
		}
		if err := f.Close(); err != nil {
			return apperrors.NewIOError("close clip file", err)
		}
		return nil
	})
}

// BestFile picks the portrait rendition whose height is closest to the output frame
func (c *PexelsClient) BestFile(v *StockVideo) (string, bool) {
	var best *VideoFile
	for i := range v.VideoFiles {
		f := &v.VideoFiles[i]
		if f.Link == "" || f.Height < f.Width {
			continue
		}
		if best == nil || abs(f.Height-c.height) < abs(best.Height-c.height) {
			best = f
		}
	}
	if best != nil {
		return best.Link, true
	}
	for _, f := range v.VideoFiles {
		if f.Link != "" {
			return f.Link, true
		}
	}
	return "", false
}

func closest(videos []StockVideo, targetSecs float64) *StockVideo {
	if len(videos) == 0 {
		return nil
	}
	sorted := make([]StockVideo, len(videos))
	copy(sorted, videos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(float64(sorted[i].Duration)-targetSecs) < math.Abs(float64(sorted[j].Duration)-targetSecs)
	})
	return &sorted[0]
}

func statusError(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.NewPermanentExternalError(msg, nil)
	}
	return apperrors.NewExternalError(msg, nil)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
