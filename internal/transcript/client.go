// Package transcript fetches video transcripts from the transcript service.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTranscript wraps every failure to obtain a transcript.
var ErrTranscript = errors.New("transcript fetch failed")

// Segment is one timed caption line.
type Segment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// Fetcher returns the ordered segments of a video's transcript. An empty
// slice means the video has no transcript.
type Fetcher interface {
	FetchTranscript(ctx context.Context, videoID string) ([]Segment, error)
}

// Client calls GET {baseURL}/transcripts/{videoID}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. A zero timeout means 15 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) FetchTranscript(ctx context.Context, videoID string) ([]Segment, error) {
	endpoint := c.baseURL + "/transcripts/" + url.PathEscape(videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrTranscript, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscript, err)
	}
	defer resp.Body.Close()

	// The service answers 404 for videos without captions.
	if resp.StatusCode == http.StatusNotFound {
		return []Segment{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrTranscript, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var segments []Segment
	if err := json.NewDecoder(resp.Body).Decode(&segments); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrTranscript, err)
	}
	if segments == nil {
		segments = []Segment{}
	}
	return segments, nil
}

// Join flattens segments into prompt text, cut to at most maxChars bytes
// on a word boundary. maxChars <= 0 means no limit.
func Join(segments []Segment, maxChars int) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	text := strings.Join(parts, " ")
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.ToValidUTF8(cut, "")
}
