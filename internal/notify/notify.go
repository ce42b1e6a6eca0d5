package notify

import (
	"log/slog"
	"sync"
)

// Level classifies a notification for display.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one user-facing toast-style message.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Success builds a success-level notification.
func Success(message string) Notification {
	return Notification{Level: LevelSuccess, Message: message}
}

// Error builds an error-level notification.
func Error(message string) Notification {
	return Notification{Level: LevelError, Message: message}
}

// Notifier receives user-facing notifications produced by the orchestration
// layer. Handlers drain them into response payloads; tests record them.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the logger. Used as a fallback sink
// when no session is attached.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "level", string(n.Level), "message", n.Message)
}

// Recorder collects notifications for assertions and for draining into
// HTTP responses. Safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Drain returns all collected notifications and resets the recorder.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notifications
	r.notifications = nil
	return out
}

// Peek returns a copy of the collected notifications without resetting.
func (r *Recorder) Peek() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}
