package monitor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/tomek7667/gputop/internal/nvsmi"
)

// ErrToolAbsent is returned by RunOnce when nvidia-smi cannot be found.
// The continuous loop never returns it; it keeps polling so the display
// recovers when a driver install finishes mid-session.
var ErrToolAbsent = errors.New("nvidia-smi not found; install the NVIDIA driver or pass --nvidia-smi")

type Config struct {
	Interval   time.Duration
	MaxProcs   int
	SortByUtil bool
}

// Monitor renders periodic terminal frames from collector snapshots.
type Monitor struct {
	cfg       Config
	collector *nvsmi.Collector
	out       io.Writer
	in        io.Reader

	prevTotal   float64
	prevIdle    float64
	havePrevCPU bool

	meta          map[int]deviceMeta
	metaUpdatedAt time.Time
}

func New(collector *nvsmi.Collector, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxProcs <= 0 {
		cfg.MaxProcs = 10
	}
	return &Monitor{
		cfg:       cfg,
		collector: collector,
		out:       os.Stdout,
		in:        os.Stdin,
	}
}

// RunOnce prints a single frame without clearing the screen, for piping
// into scripts or cron mails.
func (m *Monitor) RunOnce(ctx context.Context) error {
	if !m.collector.Available() {
		return ErrToolAbsent
	}
	m.renderFrame(ctx, false)
	return nil
}

// Run redraws until ctx is cancelled or the user types q. Stdin is
// line-buffered; no raw terminal mode is entered.
func (m *Monitor) Run(ctx context.Context) error {
	quit := make(chan struct{})
	go m.watchStdin(quit)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.renderFrame(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-quit:
			return nil
		case <-ticker.C:
			m.renderFrame(ctx, true)
		}
	}
}

func (m *Monitor) watchStdin(quit chan<- struct{}) {
	sc := bufio.NewScanner(m.in)
	for sc.Scan() {
		if strings.EqualFold(strings.TrimSpace(sc.Text()), "q") {
			close(quit)
			return
		}
	}
}
