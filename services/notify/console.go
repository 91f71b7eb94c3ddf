package notifysvc

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/bbpbat/portal/core"
)

var prefixes = map[string]string{
	core.NotifyLoading:  "...",
	core.NotifySuccess:  "[ok]",
	core.NotifyError:    "[error]",
	core.NotifyBlocking: "[!]",
}

type consoleNotifier struct {
	std   *log.Logger
	quiet bool // drop loading notifications
}

var _ core.Notifier = (*consoleNotifier)(nil)

// NewConsoleNotifier prints notifications to w, one per line.
func NewConsoleNotifier(w io.Writer, quiet bool) core.Notifier {
	return &consoleNotifier{std: log.New(w, "", 0), quiet: quiet}
}

func (n consoleNotifier) Notify(notif core.Notification) {
	if n.quiet && notif.Level == core.NotifyLoading {
		return
	}
	n.std.Println(format(notif))
}

func format(notif core.Notification) string {
	prefix, ok := prefixes[notif.Level]
	if !ok {
		prefix = "[" + notif.Level + "]"
	}
	return fmt.Sprintf("%s %s", prefix, notif.Message)
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	notes []core.Notification
}

var _ core.Notifier = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return new(Recorder)
}

func (r *Recorder) Notify(notif core.Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, notif)
	r.mu.Unlock()
}

func (r *Recorder) All() []core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Notification(nil), r.notes...)
}

// Last returns the latest notification, or a zero one.
func (r *Recorder) Last() core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return core.Notification{}
	}
	return r.notes[len(r.notes)-1]
}

// Errors returns the error and blocking notifications, in order.
func (r *Recorder) Errors() []core.Notification {
	var errs []core.Notification
	for _, n := range r.All() {
		if n.IsError() {
			errs = append(errs, n)
		}
	}
	return errs
}

// Drain returns and forgets everything recorded so far.
func (r *Recorder) Drain() []core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	notes := r.notes
	r.notes = nil
	return notes
}

// LogNotifier forwards error notifications to the logger, so that a server keeps a trace
// of what participants were told.
type LogNotifier struct {
	Logger core.Logger
	Next   core.Notifier
	Args   []interface{}
}

func (n LogNotifier) Notify(notif core.Notification) {
	if notif.IsError() && n.Logger != nil {
		n.Logger.Warn("participant notified: "+notif.Message, n.Args...)
	}
	if n.Next != nil {
		n.Next.Notify(notif)
	}
}
