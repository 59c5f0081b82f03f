// Package transcode wraps the ffmpeg binary: uploads are converted into Opus once,
// playback re-encodes the stored clip at the guild volume.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidFile is returned when ffmpeg cannot turn the upload into audio
var ErrInvalidFile = errors.New("invalid audio file")

// Transcoder runs ffmpeg
type Transcoder struct {
	ffmpegPath string
	maxSize    uint64
	logger     *zap.Logger
}

// New creates a Transcoder. Uploads are truncated to maxSize bytes of output.
func New(ffmpegPath string, maxSize uint64, logger *zap.Logger) *Transcoder {
	return &Transcoder{
		ffmpegPath: ffmpegPath,
		maxSize:    maxSize,
		logger:     logger,
	}
}

// Transcode downloads url through ffmpeg and returns it encoded as Opus
func (t *Transcoder) Transcode(ctx context.Context, url string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-i", url,
		"-loglevel", "error",
		"-vn",
		"-f", "opus",
		"-fs", strconv.FormatUint(t.maxSize, 10),
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("transcode cancelled: %w", ctx.Err())
		}
		t.logger.Debug("ffmpeg rejected upload",
			zap.Error(err),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
		)
		return nil, ErrInvalidFile
	}

	if stdout.Len() == 0 {
		return nil, ErrInvalidFile
	}

	return stdout.Bytes(), nil
}

// Stream re-encodes src at volume percent into 48kHz stereo Opus in an Ogg
// container with 20ms frames. Close the reader to stop ffmpeg.
func (t *Transcoder) Stream(ctx context.Context, src []byte, volume int16) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-i", "pipe:0",
		"-loglevel", "error",
		"-filter:a", volumeFilter(volume),
		"-c:a", "libopus",
		"-b:a", "96k",
		"-ar", "48000",
		"-ac", "2",
		"-frame_duration", "20",
		"-f", "ogg",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(src)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open ffmpeg output: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &stream{ReadCloser: stdout, cmd: cmd, cancel: cancel}, nil
}

func volumeFilter(volume int16) string {
	if volume < 0 {
		volume = 0
	}
	return fmt.Sprintf("volume=%.2f", float64(volume)/100)
}

type stream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// Close stops ffmpeg and reaps the process
func (s *stream) Close() error {
	s.cancel()
	_ = s.ReadCloser.Close()
	// Killed by cancel; the exit status is not interesting
	_ = s.cmd.Wait()
	return nil
}
