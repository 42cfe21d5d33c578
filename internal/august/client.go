package august

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"
)

// DefaultBaseURL is the August production API endpoint.
const DefaultBaseURL = "https://api-production.august.com"

const clientTimeout = 20 * time.Second

// activityPageSize bounds one activity-log fetch; upstream returns
// most-recent-first.
const activityPageSize = 50

// Client fetches houses, locks, activity logs and access codes from the
// August cloud API using a pre-authenticated access token.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
}

// ClientConfig holds the configuration for the Client.
type ClientConfig struct {
	Logger *slog.Logger
	// BaseURL overrides the API endpoint (for tests). Defaults to
	// DefaultBaseURL.
	BaseURL string
	// AccessToken authenticates every request. Obtain it with
	// LoadAccessToken.
	AccessToken string
}

// NewClient creates a new August API client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("client config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("access token cannot be empty")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		logger:     cfg.Logger,
		httpClient: &http.Client{Timeout: clientTimeout},
		baseURL:    baseURL,
		token:      cfg.AccessToken,
	}, nil
}

// tokenCache is the on-disk shape written by the authentication flow. Only
// the token itself and its expiry matter here.
type tokenCache struct {
	AccessToken        string `json:"access_token"`
	AccessTokenExpires string `json:"access_token_expires"`
}

// LoadAccessToken reads a cached access token from the given file. The cache
// is produced out of band by the interactive authentication flow; a missing,
// unreadable or expired cache is an error for this collection cycle.
func LoadAccessToken(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token cache: %w", err)
	}

	var cache tokenCache
	if err := json.Unmarshal(raw, &cache); err != nil {
		return "", fmt.Errorf("unreadable token cache %s: %w", path, err)
	}
	if cache.AccessToken == "" {
		return "", fmt.Errorf("token cache %s holds no access token", path)
	}

	if cache.AccessTokenExpires != "" {
		expires, err := time.Parse(time.RFC3339, cache.AccessTokenExpires)
		if err == nil && time.Now().After(expires) {
			return "", fmt.Errorf("access token in %s expired %s; re-run authentication", path, expires.Format(time.RFC3339))
		}
	}

	return cache.AccessToken, nil
}

// Houses fetches the houses visible to the account.
func (c *Client) Houses(ctx context.Context) (Houses, error) {
	var houses Houses
	if err := c.get(ctx, "/users/houses/mine", &houses); err != nil {
		return nil, err
	}
	return houses, nil
}

// Locks fetches the account's locks. The API returns an object keyed by lock
// id; the result is sorted by id so one cycle's iteration order is stable.
func (c *Client) Locks(ctx context.Context) ([]lockSummary, error) {
	var byID map[string]struct {
		HouseID string `json:"HouseID"`
	}
	if err := c.get(ctx, "/users/locks/mine", &byID); err != nil {
		return nil, err
	}

	locks := make([]lockSummary, 0, len(byID))
	for id, entry := range byID {
		locks = append(locks, lockSummary{DeviceID: id, HouseID: entry.HouseID})
	}
	sort.Slice(locks, func(i, j int) bool { return locks[i].DeviceID < locks[j].DeviceID })
	return locks, nil
}

// Lock fetches the full detail for one lock.
func (c *Client) Lock(ctx context.Context, lockID string) (*LockDetail, error) {
	var detail LockDetail
	if err := c.get(ctx, "/locks/"+lockID, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Activities fetches the most recent page of a house's activity log.
func (c *Client) Activities(ctx context.Context, houseID string) ([]Activity, error) {
	var entries []activityJSON
	path := fmt.Sprintf("/houses/%s/activities?limit=%d", houseID, activityPageSize)
	if err := c.get(ctx, path, &entries); err != nil {
		return nil, err
	}

	activities := make([]Activity, 0, len(entries))
	for _, entry := range entries {
		activities = append(activities, entry.toActivity())
	}
	return activities, nil
}

// pinsResponse groups access codes by their provisioning state. Only codes
// already loaded on the lock are reported.
type pinsResponse struct {
	Loaded []Pin `json:"loaded"`
}

// Pins fetches the access codes loaded on one lock.
func (c *Client) Pins(ctx context.Context, lockID string) ([]Pin, error) {
	var resp pinsResponse
	if err := c.get(ctx, "/locks/"+lockID+"/pins", &resp); err != nil {
		return nil, err
	}
	return resp.Loaded, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-august-access-token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("august request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("august rejected the access token for %s; refresh the token cache", path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("august returned %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unreadable august response: %w", err)
	}
	return nil
}

// activityJSON is the wire shape of one activity-log entry. The operated_*
// attributes live in an optional info object and are absent for most
// activity types.
type activityJSON struct {
	ID          string `json:"id"`
	DeviceID    string `json:"deviceID"`
	DeviceName  string `json:"deviceName"`
	DeviceType  string `json:"deviceType"`
	Action      string `json:"action"`
	House       string `json:"house"`
	DateTime    int64  `json:"dateTime"`
	CallingUser *struct {
		FirstName string `json:"FirstName"`
		LastName  string `json:"LastName"`
	} `json:"callingUser"`
	Info *struct {
		Remote     *bool `json:"remote"`
		Keypad     *bool `json:"keypad"`
		AutoRelock *bool `json:"autoRelock"`
	} `json:"info"`
}

// activityTypes classifies raw actions into the coarse type used as a tag.
var activityTypes = map[string]string{
	"lock":                      "LOCK_OPERATION",
	"unlock":                    "LOCK_OPERATION",
	"onetouchlock":              "LOCK_OPERATION",
	"dooropen":                  "DOOR_OPERATION",
	"doorclosed":                "DOOR_OPERATION",
	"doorbell_motion_detected":  "DOORBELL_MOTION",
	"doorbell_call_missed":      "DOORBELL_DING",
	"doorbell_call_hangup":      "DOORBELL_DING",
	"associated_bridge_offline": "BRIDGE_OPERATION",
	"associated_bridge_online":  "BRIDGE_OPERATION",
}

func (e activityJSON) toActivity() Activity {
	at := time.UnixMilli(e.DateTime).UTC()

	activityType, ok := activityTypes[e.Action]
	if !ok {
		activityType = "UNKNOWN"
	}

	id := e.ID
	if id == "" {
		id = fmt.Sprintf("%s-%d", e.DeviceID, e.DateTime)
	}

	activity := Activity{
		ID:           id,
		HouseID:      e.House,
		DeviceID:     e.DeviceID,
		DeviceName:   e.DeviceName,
		DeviceType:   e.DeviceType,
		ActivityType: activityType,
		Action:       e.Action,
		StartTime:    at,
		EndTime:      at,
	}

	if e.CallingUser != nil {
		name := e.CallingUser.FirstName + " " + e.CallingUser.LastName
		activity.OperatedBy = &name
	}
	if e.Info != nil {
		activity.OperatedRemote = e.Info.Remote
		activity.OperatedKeypad = e.Info.Keypad
		activity.OperatedAutoRelock = e.Info.AutoRelock
	}

	return activity
}
