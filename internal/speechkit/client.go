package speechkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"voxeval/pkg/logger"

	"go.uber.org/zap"
)

const (
	RecognizeURL  = "https://transcribe.api.cloud.yandex.net/speech/stt/v2/longRunningRecognize"
	OperationURL  = "https://operation.api.cloud.yandex.net/operations"
	OperationPoll = 5 * time.Second
	MaxWaitTime   = 30 * time.Minute

	DefaultLocale = "en-US"
)

type Client struct {
	apiKey   string
	folderID string
	locale   string
	client   *http.Client

	recognizeURL string
	operationURL string
	poll         time.Duration
	maxWait      time.Duration
}

// NewClient creates a Yandex SpeechKit client. Recognition runs in the
// given locale, en-US when empty.
func NewClient(apiKey, folderID, locale string) *Client {
	if locale == "" {
		locale = DefaultLocale
	}
	return &Client{
		apiKey:   apiKey,
		folderID: folderID,
		locale:   locale,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		recognizeURL: RecognizeURL,
		operationURL: OperationURL,
		poll:         OperationPoll,
		maxWait:      MaxWaitTime,
	}
}

func (c *Client) Locale() string {
	return c.locale
}

// StartRecognition starts async recognition of an OGG/Opus object and
// returns the operation id.
func (c *Client) StartRecognition(ctx context.Context, s3URI string) (string, error) {
	reqBody := RecognitionRequest{
		Config: RecognitionConfig{
			Specification: Specification{
				LanguageCode:      c.locale,
				Model:             "general",
				AudioEncoding:     "OGG_OPUS",
				SampleRateHertz:   48000,
				AudioChannelCount: 1,
				ProfanityFilter:   false,
				LiteratureText:    false,
				RawResults:        true,
			},
		},
		Audio: AudioSource{
			URI: s3URI,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.recognizeURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-folder-id", c.folderID)

	logger.Debug("Starting speech recognition", zap.String("s3_uri", s3URI), zap.String("locale", c.locale))

	var opResp OperationResponse
	if err := c.do(req, &opResp); err != nil {
		return "", fmt.Errorf("recognition request failed: %w", err)
	}

	logger.Info("Recognition started", zap.String("operation_id", opResp.ID))
	return opResp.ID, nil
}

// WaitForResult polls the operation until it is done, the wait limit is
// exceeded or ctx is cancelled.
func (c *Client) WaitForResult(ctx context.Context, operationID string) (*RecognitionResult, error) {
	url := fmt.Sprintf("%s/%s", c.operationURL, operationID)
	startTime := time.Now()

	for {
		if time.Since(startTime) > c.maxWait {
			return nil, fmt.Errorf("recognition timeout exceeded")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.authorize(req)

		var opResp OperationResponse
		if err := c.do(req, &opResp); err != nil {
			return nil, fmt.Errorf("operation check failed: %w", err)
		}

		if opResp.Done {
			if opResp.Error != nil {
				return nil, fmt.Errorf("recognition failed: %s (code: %d)", opResp.Error.Message, opResp.Error.Code)
			}

			result := opResp.Response
			if result == nil {
				result = &RecognitionResult{}
			}

			logger.Info("Recognition completed",
				zap.String("operation_id", operationID),
				zap.Int("chunks", len(result.Chunks)))

			return result, nil
		}

		logger.Debug("Recognition in progress",
			zap.String("operation_id", operationID),
			zap.Duration("elapsed", time.Since(startTime)))

		timer := time.NewTimer(c.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Api-Key %s", c.apiKey))
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
