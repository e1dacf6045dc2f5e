package report

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/logflow/logvar/pkg/variability"
)

// NewProgress returns a progress callback drawing a bar on w for the
// pairwise comparison of one log. The bar is created on the first call,
// once the number of variant pairs is known, and cleared when done.
func NewProgress(w io.Writer, description string) variability.ProgressFunc {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(done, total int64) {
		mu.Lock()
		defer mu.Unlock()

		if total == 0 {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions64(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowBytes(false),
				progressbar.OptionShowCount(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "█",
					SaucerHead:    "█",
					SaucerPadding: "░",
					BarStart:      "",
					BarEnd:        "",
				}),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set64(done)
		if done >= total {
			_ = bar.Finish()
		}
	}
}
