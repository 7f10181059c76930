// Package extract reads measurement fields from photographs through an
// OpenAI-compatible chat completions endpoint.
package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alphadose/haxmap"
	resty "github.com/go-resty/resty/v2"

	"rlis-backend/internal/logger"
)

var (
	ErrInFlight      = errors.New("extraction already running for this machine")
	ErrNoImages      = errors.New("no images supplied")
	ErrNotConfigured = errors.New("extraction endpoint not configured")
)

const completionsPath = "/chat/completions"

// Image is one uploaded photograph.
type Image struct {
	MediaType string
	Data      []byte
}

type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client runs extraction tasks. At most one call per machine and task is in
// flight at a time.
type Client struct {
	client   *resty.Client
	model    string
	inFlight *haxmap.Map[string, struct{}]
}

func NewClient(conf Config) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	c := resty.New().
		SetTimeout(timeout).
		SetBaseURL(conf.Endpoint).
		SetHeader("Content-Type", "application/json")
	if conf.APIKey != "" {
		c.SetAuthToken(conf.APIKey)
	}
	return &Client{
		client:   c,
		model:    conf.Model,
		inFlight: haxmap.New[string, struct{}](),
	}
}

// Running reports whether a call for machineID and task is pending.
func (c *Client) Running(machineID, task string) bool {
	_, ok := c.inFlight.Get(flightKey(machineID, task))
	return ok
}

func flightKey(machineID, task string) string {
	return machineID + "/" + task
}

// Extract sends the images with the task prompt and returns the fields the
// model could read. Fields outside the task are dropped.
func (c *Client) Extract(ctx context.Context, machineID string, task Task, images []Image) (map[string]string, error) {
	if c.client.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	key := flightKey(machineID, task.Name)
	if _, loaded := c.inFlight.GetOrSet(key, struct{}{}); loaded {
		return nil, ErrInFlight
	}
	defer c.inFlight.Del(key)

	parts := []contentPart{{Type: "text", Text: task.Prompt}}
	for _, img := range images {
		mediaType := img.MediaType
		if mediaType == "" {
			mediaType = http.DetectContentType(img.Data)
		}
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}

	result := &chatResponse{}
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:          c.model,
			Messages:       []chatMessage{{Role: "user", Content: parts}},
			ResponseFormat: map[string]string{"type": "json_object"},
		}).
		SetResult(result).
		Post(completionsPath)
	if err != nil {
		logger.Errorf(ctx, "extraction request for %s failed: %v", machineID, err)
		return nil, fmt.Errorf("extraction request: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		logger.Warnf(ctx, "extraction for %s returned status %d", machineID, res.StatusCode())
		return nil, fmt.Errorf("extraction request: status %d", res.StatusCode())
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty reply", ErrUnparsable)
	}

	fields, err := ParseFields(result.Choices[0].Message.Content)
	if err != nil {
		logger.Warnf(ctx, "extraction reply for %s unparsable: %v", machineID, err)
		return nil, err
	}
	return Allowed(fields, task.Fields), nil
}
