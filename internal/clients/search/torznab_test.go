package search

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const torznabFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
  <channel>
    <title>MockIndexer</title>
    <item>
      <title>Big Buck Bunny 2008 1080p BluRay x264</title>
      <link>http://indexer.local/dl/1</link>
      <pubDate>Sat, 01 Mar 2025 10:00:00 +0000</pubDate>
      <size>1073741824</size>
      <torznab:attr name="seeders" value="120" />
      <torznab:attr name="peers" value="30" />
      <torznab:attr name="magneturl" value="magnet:?xt=urn:btih:c9e15763f722f23e98a29decdfae341b98d53056" />
    </item>
    <item>
      <title>Big Buck Bunny 2008 CAM</title>
      <link>magnet:?xt=urn:btih:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa</link>
      <pubDate>Sat, 01 Mar 2025 09:00:00 +0000</pubDate>
      <size>734003200</size>
      <torznab:attr name="seeders" value="5" />
    </item>
    <item>
      <title>Big Buck Bunny 2008 no download</title>
      <link>http://indexer.local/dl/3</link>
      <size>1</size>
    </item>
  </channel>
</rss>`

func TestTorznabSearch(t *testing.T) {
	var gotQuery, gotAPIKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAPIKey = r.URL.Query().Get("apikey")
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(torznabFixture))
	}))
	defer srv.Close()

	client := NewTorznabClient(srv.URL, "secret", 5*time.Second)
	results, err := client.Search("big buck bunny")
	require.NoError(t, err)

	assert.Equal(t, "big buck bunny", gotQuery)
	assert.Equal(t, "secret", gotAPIKey)

	// The item without any magnet is dropped.
	require.Len(t, results, 2)

	// The BluRay release outranks the CAM despite order in the feed.
	assert.Equal(t, "Big Buck Bunny 2008 1080p BluRay x264", results[0].Title)
	assert.Equal(t, 120, results[0].Seeders)
	assert.Equal(t, 30, results[0].Leechers)
	assert.Equal(t, "MockIndexer", results[0].Indexer)
	assert.Greater(t, results[0].Score, results[1].Score)

	// The magnet can live in the link element directly.
	assert.Equal(t, "magnet:?xt=urn:btih:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", results[1].MagnetURL)
}

func TestTorznabSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewTorznabClient(srv.URL, "", 5*time.Second)
	_, err := client.Search("anything")
	assert.Error(t, err)
}

func TestTorznabHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") == "caps" {
			w.Write([]byte(`<caps></caps>`))
			return
		}
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewTorznabClient(srv.URL, "", 5*time.Second)
	ok, err := client.HealthCheck()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRankOrdersByQualityAndSwarm(t *testing.T) {
	results := Rank([]Result{
		{Title: "Movie CAM", Seeders: 10},
		{Title: "Movie 2160p REMUX", Seeders: 4},
		{Title: "Movie 1080p WEB-DL", Seeders: 50},
	})

	assert.Equal(t, "Movie 1080p WEB-DL", results[0].Title)
	assert.Equal(t, "Movie 2160p REMUX", results[1].Title)
	assert.Equal(t, "Movie CAM", results[2].Title)
}
