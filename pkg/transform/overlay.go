package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/medisupply/video-processor/pkg/config"
)

// ErrTransform marks a codec or content fault. It is permanent: a
// corrupt source will not transform correctly on redelivery.
var ErrTransform = errors.New("video transform failed")

// Overlayer composites the corporate mark over the leading window of a
// video and re-encodes to the canonical output format (mp4, h264/aac).
// The mark image is a fixed process-wide asset, verified once at
// construction.
type Overlayer struct {
	runner     Runner
	ffmpegPath string
	markPath   string
	window     time.Duration
	opacity    float64
	margin     int
}

func NewOverlayer(cfg config.ProcessingConfig, runner Runner) (*Overlayer, error) {
	if _, err := os.Stat(cfg.MarkPath); err != nil {
		return nil, fmt.Errorf("mark image not found at %s: %w", cfg.MarkPath, err)
	}

	window := cfg.OverlayWindow
	if window <= 0 {
		window = 3 * time.Second
	}

	return &Overlayer{
		runner:     runner,
		ffmpegPath: cfg.FFmpegPath,
		markPath:   cfg.MarkPath,
		window:     window,
		opacity:    cfg.MarkOpacity,
		margin:     cfg.MarkMargin,
	}, nil
}

// Apply reads the video at srcPath and writes the marked re-encode to
// destPath. The mark covers frames with timestamps strictly below the
// window; a frame stamped exactly at the boundary passes through clean.
// Sources shorter than the overlay window carry the mark for their
// entire duration; the enable window simply outlasts them.
func (o *Overlayer) Apply(ctx context.Context, srcPath, destPath string) error {
	output, err := o.runner.Run(ctx, o.ffmpegPath, o.buildArgs(srcPath, destPath)...)
	if err != nil {
		return fmt.Errorf("%w: %v: %s", ErrTransform, err, tail(output, 512))
	}

	info, err := os.Stat(destPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: ffmpeg produced no output for %s", ErrTransform, srcPath)
	}
	return nil
}

func (o *Overlayer) buildArgs(srcPath, destPath string) []string {
	seconds := strconv.FormatFloat(o.window.Seconds(), 'f', -1, 64)
	filter := fmt.Sprintf(
		"[1:v]format=rgba,colorchannelmixer=aa=%.2f[mark];[0:v][mark]overlay=%d:%d:enable='lt(t,%s)'",
		o.opacity, o.margin, o.margin, seconds,
	)

	return []string{
		"-y",
		"-i", srcPath,
		"-i", o.markPath,
		"-filter_complex", filter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-movflags", "+faststart",
		destPath,
	}
}

func tail(output []byte, limit int) string {
	if len(output) <= limit {
		return string(output)
	}
	return string(output[len(output)-limit:])
}
