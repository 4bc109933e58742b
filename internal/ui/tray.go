package ui

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/reelsmith/reelsmith-studio/internal/studio"
)

//go:embed icon.png
var iconBytes []byte

const refreshInterval = 2 * time.Second

// StatusSource reports what the studio is doing.
type StatusSource interface {
	Runs() []studio.RunStatus
	SessionCount(ctx context.Context) (int, error)
}

type Tray struct {
	source StatusSource
	url    string
	logger *slog.Logger

	statusItem   *systray.MenuItem
	sessionsItem *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	Source StatusSource
	// URL is shown in the menu so the studio page can be found again.
	URL    string
	Logger *slog.Logger
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		source: cfg.Source,
		url:    cfg.URL,
		logger: cfg.Logger,
		onQuit: cfg.OnQuit,
	}
}

// Run blocks until the tray exits.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Reelsmith")
	systray.SetTooltip("Reelsmith Studio")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem("Status: Idle", "Current studio status")
	t.statusItem.Disable()

	t.sessionsItem = systray.AddMenuItem("Sessions: 0", "Open studio sessions")
	t.sessionsItem.Disable()
	t.mu.Unlock()

	if t.url != "" {
		urlItem := systray.AddMenuItem(t.url, "Studio address")
		urlItem.Disable()
	}

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Reelsmith Studio")

	ctx, cancel := context.WithCancel(context.Background())
	go t.watch(ctx)

	go func() {
		<-quitItem.ClickedCh
		t.logger.Info("quit requested from tray")
		cancel()
		if t.onQuit != nil {
			t.onQuit()
		}
		systray.Quit()
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// watch refreshes the menu from the status source until ctx is done.
func (t *Tray) watch(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		t.refresh(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tray) refresh(ctx context.Context) {
	if t.source == nil {
		return
	}
	t.UpdateStatus(StatusTitle(t.source.Runs()))

	count, err := t.source.SessionCount(ctx)
	if err != nil {
		t.logger.Debug("failed to count sessions", "error", err)
		return
	}
	t.UpdateSessionsCount(count)
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.statusItem == nil {
		return
	}
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) UpdateSessionsCount(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessionsItem == nil {
		return
	}
	t.sessionsItem.SetTitle(fmt.Sprintf("Sessions: %d", count))
}

func (t *Tray) Quit() {
	systray.Quit()
}

// StatusTitle summarises the busy sessions for the menu.
func StatusTitle(runs []studio.RunStatus) string {
	switch len(runs) {
	case 0:
		return "Idle"
	case 1:
		r := runs[0]
		if r.Progress != nil && r.Progress.Total > 0 {
			return fmt.Sprintf("%s %d/%d", activityLabel(r.Activity), r.Progress.Current, r.Progress.Total)
		}
		return activityLabel(r.Activity)
	default:
		return fmt.Sprintf("Busy (%d sessions)", len(runs))
	}
}

func activityLabel(a studio.Activity) string {
	switch a {
	case studio.ActivityExpanding:
		return "Writing script"
	case studio.ActivityAnalyzingDocument:
		return "Reading document"
	case studio.ActivityAnalyzingImages:
		return "Analyzing images"
	case studio.ActivityExtractingShots:
		return "Extracting shots"
	case studio.ActivityGenerating:
		return "Generating video"
	case studio.ActivityProducingQueue:
		return "Producing queue"
	case studio.ActivityResetting:
		return "Resetting session"
	case studio.ActivityDeleting:
		return "Deleting session"
	default:
		return "Busy"
	}
}
