package gamehost_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"netplay-adapter/gamehost"
)

func TestBannerClient_FetchBanner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gamehost.SessionBanner{Title: "Grand Finals", Message: "bo5"})
	}))
	defer server.Close()

	client := gamehost.NewBannerClient(server.URL)
	defer client.Close()

	banner, err := client.FetchBanner("session-1")
	assert.NoError(t, err)
	assert.Equal(t, "Grand Finals", banner.Title)
}

func TestBannerClient_EmptyRootReturnsNil(t *testing.T) {
	client := gamehost.NewBannerClient("")
	defer client.Close()

	banner, err := client.FetchBanner("session-1")
	assert.NoError(t, err)
	assert.Nil(t, banner)
}

func TestAttach_RecordsIpcPort(t *testing.T) {
	target := gamehost.Attach(4242)
	assert.Equal(t, uint(4242), target.IpcPort)
}
