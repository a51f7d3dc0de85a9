package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

// YTDLP runs yt-dlp through the go-ytdlp command builder
type YTDLP struct {
	executable string
	logger     *slog.Logger
}

// NewYTDLP creates a Transformer backed by the yt-dlp binary.
// An empty executable lets go-ytdlp resolve it from PATH.
func NewYTDLP(executable string, logger *slog.Logger) *YTDLP {
	return &YTDLP{
		executable: executable,
		logger:     logger,
	}
}

func (y *YTDLP) command() *ytdlp.Command {
	cmd := ytdlp.New()
	if y.executable != "" {
		cmd = cmd.SetExecutable(y.executable)
	}
	return cmd
}

// Invoke starts the download in its own goroutine
func (y *YTDLP) Invoke(ctx context.Context, inv Invocation) <-chan Exit {
	done := make(chan Exit, 1)

	go func() {
		defer close(done)
		done <- y.run(ctx, inv)
	}()

	return done
}

func (y *YTDLP) run(ctx context.Context, inv Invocation) Exit {
	cmd := y.command().
		Format(inv.Format).
		Output(inv.OutputTemplate).
		PrintJSON()

	if inv.Options.NoPlaylist {
		cmd = cmd.NoPlaylist()
	}
	if inv.Options.MergeFormat != "" {
		cmd = cmd.MergeOutputFormat(inv.Options.MergeFormat)
	}
	if inv.Options.ExtractAudio {
		cmd = cmd.ExtractAudio().
			AudioFormat(inv.Options.AudioFormat).
			AudioQuality(inv.Options.AudioQuality)
	}

	y.logger.Debug("Invoking yt-dlp",
		slog.String("url", inv.URL),
		slog.String("format", inv.Format),
		slog.String("output", inv.OutputTemplate),
	)

	result, err := cmd.Run(ctx, inv.URL)
	if err != nil {
		if result != nil && result.ExitCode != 0 {
			return Exit{Code: result.ExitCode, Detail: tail(result.Stderr)}
		}
		return Exit{Code: -1, Err: fmt.Errorf("failed to run yt-dlp: %w", err)}
	}

	return Exit{Code: result.ExitCode, OutputPath: reportedOutput(result)}
}

// reportedOutput returns the filename yt-dlp printed, if any.
func reportedOutput(result *ytdlp.Result) string {
	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 || info[0].Filename == nil {
		return ""
	}
	return *info[0].Filename
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 512
	if len(s) > max {
		return s[len(s)-max:]
	}
	return s
}
