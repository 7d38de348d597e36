package notifications

// Notifier announces streaming lifecycle events to the operator.
type Notifier interface {
	NotifyStreamReady(name string)
	NotifyDownloadComplete(name string)
	Test() error
}

// NoopNotifier is used when no notification provider is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyStreamReady(string)      {}
func (NoopNotifier) NotifyDownloadComplete(string) {}
func (NoopNotifier) Test() error                   { return nil }
