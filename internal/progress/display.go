package progress

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Display handles the progress display
type Display struct {
	tracker   *Tracker
	interval  time.Duration
	stopCh    chan struct{}
	lastLines int
}

// NewDisplay creates a new progress display
func NewDisplay(tracker *Tracker, interval time.Duration) *Display {
	return &Display{
		tracker:  tracker,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the progress display
func (d *Display) Start() {
	go d.displayLoop()
}

// Stop stops the progress display
func (d *Display) Stop() {
	close(d.stopCh)
}

// displayLoop runs the display update loop
func (d *Display) displayLoop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.updateDisplay()
		case <-d.stopCh:
			d.finalDisplay()
			return
		}
	}
}

// updateDisplay updates the console display
func (d *Display) updateDisplay() {
	status := d.tracker.GetStatus()

	lines := d.generateDisplay(status)

	d.clearLines()

	fmt.Print(strings.Join(lines, "\n"))
	d.lastLines = len(lines)
}

// finalDisplay shows the final progress
func (d *Display) finalDisplay() {
	d.clearLines()
	status := d.tracker.GetStatus()
	lines := d.generateFinalDisplay(status)
	fmt.Println(strings.Join(lines, "\n"))
}

// clearLines separates the previous output block from the next one.
// ANSI cursor movement is unreliable on Windows terminals, so a plain
// newline is used instead of escape sequences.
func (d *Display) clearLines() {
	if d.lastLines > 0 {
		fmt.Print("\n")
	}
}

// generateDisplay generates the progress display lines
func (d *Display) generateDisplay(status Status) []string {
	lines := make([]string, 0)

	lines = append(lines, "")
	lines = append(lines, "🚀 Upload progress")
	lines = append(lines, "="+strings.Repeat("=", 50))

	fileProgress := d.tracker.GetProgressPercent()
	lines = append(lines, fmt.Sprintf("📊 Files: %d/%d (%.1f%%)",
		status.ProcessedFiles, status.TotalFiles, fileProgress))

	progressBar := d.generateProgressBar(fileProgress, 40)
	lines = append(lines, fmt.Sprintf("    %s", progressBar))

	bytesProgress := d.tracker.GetBytesProgressPercent()
	lines = append(lines, fmt.Sprintf("💾 Data: %s/%s (%.1f%%)",
		FormatBytes(status.ProcessedBytes), FormatBytes(status.TotalBytes), bytesProgress))

	bytesProgressBar := d.generateProgressBar(bytesProgress, 40)
	lines = append(lines, fmt.Sprintf("    %s", bytesProgressBar))

	lines = append(lines, "")
	lines = append(lines, "📈 Breakdown:")
	lines = append(lines, fmt.Sprintf("  ✅ Uploaded: %d", status.SuccessFiles))
	lines = append(lines, fmt.Sprintf("  ❌ Failed: %d", status.FailedFiles))
	lines = append(lines, fmt.Sprintf("  ⏭️  Skipped: %d", status.SkippedFiles))

	lines = append(lines, "")
	lines = append(lines, "⚡ Speed:")
	lines = append(lines, fmt.Sprintf("  Current: %s", FormatSpeed(status.CurrentSpeed)))
	lines = append(lines, fmt.Sprintf("  Average: %s", FormatSpeed(status.AverageSpeed)))

	elapsed := time.Since(status.StartTime)
	lines = append(lines, "")
	lines = append(lines, "⏱️  Time:")
	lines = append(lines, fmt.Sprintf("  Elapsed: %s", FormatDuration(elapsed)))
	lines = append(lines, fmt.Sprintf("  Remaining: %s", FormatDuration(status.ETA)))

	if status.ETA > 0 {
		estimatedCompletion := time.Now().Add(status.ETA)
		lines = append(lines, fmt.Sprintf("  Finish at: %s", estimatedCompletion.Format("15:04:05")))
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("⏰ Last update: %s", status.LastUpdateTime.Format("15:04:05")))
	lines = append(lines, "")

	return lines
}

// generateFinalDisplay generates the final completion display
func (d *Display) generateFinalDisplay(status Status) []string {
	lines := make([]string, 0)

	elapsed := time.Since(status.StartTime)

	lines = append(lines, "")
	lines = append(lines, "🎉 Upload complete!")
	lines = append(lines, "="+strings.Repeat("=", 50))

	lines = append(lines, fmt.Sprintf("📊 Processed: %d files", status.ProcessedFiles))
	lines = append(lines, fmt.Sprintf("💾 Data: %s", FormatBytes(status.ProcessedBytes)))
	lines = append(lines, fmt.Sprintf("✅ Uploaded: %d", status.SuccessFiles))
	lines = append(lines, fmt.Sprintf("❌ Failed: %d", status.FailedFiles))
	lines = append(lines, fmt.Sprintf("⏭️  Skipped: %d", status.SkippedFiles))
	lines = append(lines, fmt.Sprintf("⏱️  Total time: %s", FormatDuration(elapsed)))
	lines = append(lines, fmt.Sprintf("⚡ Average speed: %s", FormatSpeed(status.AverageSpeed)))
	lines = append(lines, "")

	return lines
}

// generateProgressBar generates a visual progress bar
func (d *Display) generateProgressBar(percent float64, width int) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	filled := int(percent * float64(width) / 100)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	return fmt.Sprintf("[%s] %.1f%%", bar, percent)
}

// IsTerminalSupported checks if the terminal supports progress display
func IsTerminalSupported() bool {
	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		return false
	}

	return true
}
