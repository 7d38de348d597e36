package search

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// TorznabClient searches any Torznab-compatible indexer (Jackett,
// Prowlarr, a private tracker's native endpoint).
type TorznabClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewTorznabClient(baseURL, apiKey string, timeout time.Duration) *TorznabClient {
	return &TorznabClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type torznabFeed struct {
	XMLName xml.Name       `xml:"rss"`
	Channel torznabChannel `xml:"channel"`
}

type torznabChannel struct {
	Title string        `xml:"title"`
	Items []torznabItem `xml:"item"`
}

type torznabItem struct {
	Title      string       `xml:"title"`
	Link       string       `xml:"link"`
	PubDate    string       `xml:"pubDate"`
	Size       int64        `xml:"size"`
	GUID       string       `xml:"guid"`
	Attributes []torznabAttr `xml:"attr"`
}

type torznabAttr struct {
	XMLName xml.Name `xml:"attr"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
}

func (item *torznabItem) intAttr(name string) int {
	for _, attr := range item.Attributes {
		if attr.Name == name {
			val, _ := strconv.Atoi(attr.Value)
			return val
		}
	}
	return 0
}

func (item *torznabItem) strAttr(name string) string {
	for _, attr := range item.Attributes {
		if attr.Name == name {
			return attr.Value
		}
	}
	return ""
}

// magnet prefers the magneturl attribute and falls back to the link when
// the indexer puts the magnet there directly.
func (item *torznabItem) magnet() string {
	if m := item.strAttr("magneturl"); strings.HasPrefix(m, "magnet:") {
		return m
	}
	if strings.HasPrefix(item.Link, "magnet:") {
		return item.Link
	}
	return ""
}

func (c *TorznabClient) Search(query string) ([]Result, error) {
	params := url.Values{}
	params.Set("t", "search")
	params.Set("q", query)
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Get(fmt.Sprintf("%s?%s", c.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to query indexer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer search failed with status: %d", resp.StatusCode)
	}

	var feed torznabFeed
	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode torznab response: %w", err)
	}

	results := make([]Result, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		magnet := item.magnet()
		if magnet == "" {
			// Without a magnet there is nothing to hand to the engine.
			continue
		}
		pubDate, _ := time.Parse(time.RFC1123Z, item.PubDate)
		results = append(results, Result{
			Title:       item.Title,
			MagnetURL:   magnet,
			Size:        item.Size,
			Seeders:     item.intAttr("seeders"),
			Leechers:    item.intAttr("peers"),
			PublishDate: pubDate,
			Indexer:     feed.Channel.Title,
		})
	}
	return Rank(results), nil
}

func (c *TorznabClient) HealthCheck() (bool, error) {
	params := url.Values{}
	params.Set("t", "caps")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Get(fmt.Sprintf("%s?%s", c.baseURL, params.Encode()))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
