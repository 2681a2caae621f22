package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const apiBase = "https://api.line.me/v2/bot"

// Client is a minimal Messaging API client covering what the bot needs:
// replying to events and resolving user profiles.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(channelAccessToken string) *Client {
	return &Client{
		token:      channelAccessToken,
		baseURL:    apiBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
}

// GetProfile fetches a user's profile from the platform.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/profile/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("line API returned status %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// DisplayName resolves a user id to a display name.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	profile, err := c.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.DisplayName, nil
}

// ReplyMessage answers a webhook event with up to five messages.
func (c *Client) ReplyMessage(ctx context.Context, replyToken string, messages ...map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"replyToken": replyToken,
		"messages":   messages,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/message/reply", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("line API returned status %d", resp.StatusCode)
	}
	return nil
}
