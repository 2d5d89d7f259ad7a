package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/folionet/messaging-backend/internal/cache"
)

// Profile is a user record as served by the account service. The account
// service stores Mongo-style documents, hence the `_id` key.
type Profile struct {
	ID           uint   `json:"_id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	ProfileImage string `json:"profile_image"`
	Connections  []uint `json:"connections"`
}

// UserAPI talks to the external account service that owns identity and
// profiles. The messaging core only reads from it, for rendering conversation
// peers.
type UserAPI struct {
	baseURL      string
	httpClient   *http.Client
	profileCache *cache.ProfileCache
}

func NewUserAPI(profileCache *cache.ProfileCache) *UserAPI {
	baseURL := os.Getenv("USER_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:5000/api"
	}
	return &UserAPI{
		baseURL:      baseURL,
		profileCache: profileCache,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewUserAPIWithBase is used by tests to point the client at a local server.
func NewUserAPIWithBase(baseURL string) *UserAPI {
	return &UserAPI{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetProfile fetches the profile of the token's owner.
func (a *UserAPI) GetProfile(token string) (*Profile, error) {
	var profile Profile
	if err := a.getJSON("/user/profile", token, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfileByID fetches another user's public profile, cached for a few
// minutes.
func (a *UserAPI) GetProfileByID(token string, userID uint) (*Profile, error) {
	var cached Profile
	if a.profileCache.Get(userID, &cached) {
		return &cached, nil
	}

	var profile Profile
	if err := a.getJSON(fmt.Sprintf("/user/profile/%d", userID), token, &profile); err != nil {
		return nil, err
	}
	_ = a.profileCache.Set(userID, profile)
	return &profile, nil
}

// GetAllUsers fetches every registered user's public profile.
func (a *UserAPI) GetAllUsers(token string) ([]Profile, error) {
	var profiles []Profile
	if err := a.getJSON("/user/all", token, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (a *UserAPI) getJSON(path, token string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling account service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("account service %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding account service response from %s: %w", path, err)
	}
	return nil
}
