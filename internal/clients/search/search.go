package search

import (
	"sort"
	"strings"
	"time"
)

// Client is the interface for torrent search providers.
type Client interface {
	Search(query string) ([]Result, error)
	HealthCheck() (bool, error)
}

// Result is a standardized search hit; MagnetURL feeds straight into the
// torrent add endpoint.
type Result struct {
	Title       string    `json:"title"`
	MagnetURL   string    `json:"magnet_url"`
	Size        int64     `json:"size"`
	Seeders     int       `json:"seeders"`
	Leechers    int       `json:"leechers"`
	PublishDate time.Time `json:"publish_date"`
	Indexer     string    `json:"indexer"`
	Score       int       `json:"score"`
}

var qualityScores = map[string]int{
	"2160p": 8, "4k": 8, "uhd": 8,
	"1080p": 5, "fhd": 5,
	"720p": 4, "hd": 4,
	"480p": 3,
	"remux": 10,
	"bluray": 8, "blu-ray": 8, "bdrip": 8, "brrip": 6,
	"web-dl": 7, "webdl": 7, "web": 6, "webrip": 5,
	"hdtv": 4, "dvdrip": 3,
	"cam": 1, "ts": 1,
	"x265": 3, "h265": 3, "hevc": 3,
	"x264": 2, "h264": 2,
	"hdr": 2, "dolbyvision": 3,
}

func qualityScore(title string) int {
	score := 0
	lower := strings.ToLower(title)
	for key, value := range qualityScores {
		if strings.Contains(lower, key) {
			score += value
		}
	}
	return score
}

// Rank scores results by release quality plus swarm health and sorts them
// best-first.
func Rank(results []Result) []Result {
	for i := range results {
		results[i].Score = qualityScore(results[i].Title) + results[i].Seeders
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
