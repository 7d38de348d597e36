package notifications

import (
	"fmt"

	"github.com/xconstruct/go-pushbullet"

	"syncwatch/internal/utils"
)

// PushbulletClient implements the Notifier interface for Pushbullet.
type PushbulletClient struct {
	pb     *pushbullet.Client
	logger *utils.Logger
}

func NewPushbulletClient(apiKey string, logger *utils.Logger) *PushbulletClient {
	return &PushbulletClient{
		pb:     pushbullet.New(apiKey),
		logger: logger,
	}
}

// sendPush sends a note to all of the user's devices.
func (c *PushbulletClient) sendPush(title, body string) {
	if err := c.pb.PushNote("", title, body); err != nil {
		c.logger.Error("Error sending Pushbullet notification:", err)
	}
}

// NotifyStreamReady fires when a torrent crosses its streaming threshold.
func (c *PushbulletClient) NotifyStreamReady(name string) {
	c.sendPush(
		fmt.Sprintf("Ready to watch: %s", name),
		"Enough data has downloaded to start playback.",
	)
}

func (c *PushbulletClient) NotifyDownloadComplete(name string) {
	c.sendPush(
		fmt.Sprintf("Download complete: %s", name),
		"The full file is now on disk.",
	)
}

// Test verifies the API key by pushing a test note.
func (c *PushbulletClient) Test() error {
	if err := c.pb.PushNote("", "syncwatch", "Notification test"); err != nil {
		return fmt.Errorf("pushbullet test push failed: %w", err)
	}
	return nil
}
