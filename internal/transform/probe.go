package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cuongbtq/media-gateway/internal/domain"
)

type rawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	Height         *int     `json:"height"`
	Width          *int     `json:"width"`
	ABR            *float64 `json:"abr"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *int64   `json:"filesize_approx"`
}

type rawInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Duration    float64     `json:"duration"`
	Thumbnail   string      `json:"thumbnail"`
	Uploader    string      `json:"uploader"`
	UploadDate  string      `json:"upload_date"`
	ViewCount   int64       `json:"view_count"`
	Formats     []rawFormat `json:"formats"`
}

// Probe runs yt-dlp in simulate mode and parses its JSON dump
func (y *YTDLP) Probe(ctx context.Context, url string) (*domain.MediaInfo, error) {
	result, err := y.command().
		DumpJSON().
		NoPlaylist().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata probe: %v", domain.ErrTransformFailed, err)
	}

	info, err := ParseMediaInfo([]byte(result.Stdout))
	if err != nil {
		return nil, err
	}

	y.logger.Debug("Probed media",
		slog.String("id", info.ID),
		slog.Int("video_formats", len(info.VideoFormats)),
		slog.Int("audio_formats", len(info.AudioFormats)),
	)

	return info, nil
}

// ParseMediaInfo converts a yt-dlp JSON dump into MediaInfo. Video formats
// carry both codecs and are unique per height; audio formats have no video.
func ParseMediaInfo(data []byte) (*domain.MediaInfo, error) {
	// --dump-json prints one object per line; the first is the video.
	line := strings.TrimSpace(string(data))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	var raw rawInfo
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse metadata: %v", domain.ErrTransformFailed, err)
	}

	info := &domain.MediaInfo{
		ID:           raw.ID,
		Title:        raw.Title,
		Description:  raw.Description,
		Duration:     raw.Duration,
		Thumbnail:    raw.Thumbnail,
		Uploader:     raw.Uploader,
		UploadDate:   raw.UploadDate,
		Views:        raw.ViewCount,
		VideoFormats: []domain.VideoFormat{},
		AudioFormats: []domain.AudioFormat{},
	}

	seenHeights := map[int]bool{}
	for _, f := range raw.Formats {
		hasVideo := f.VCodec != "" && f.VCodec != "none"
		hasAudio := f.ACodec != "" && f.ACodec != "none"

		switch {
		case hasVideo && hasAudio:
			height := deref(f.Height)
			if seenHeights[height] {
				continue
			}
			seenHeights[height] = true
			info.VideoFormats = append(info.VideoFormats, domain.VideoFormat{
				Quality:  fmt.Sprintf("%dp", height),
				Height:   height,
				Width:    deref(f.Width),
				FormatID: f.FormatID,
				Ext:      f.Ext,
				Filesize: size(f),
			})
		case !hasVideo && hasAudio && f.ABR != nil && *f.ABR > 0:
			info.AudioFormats = append(info.AudioFormats, domain.AudioFormat{
				Bitrate:  *f.ABR,
				FormatID: f.FormatID,
				Ext:      f.Ext,
				Filesize: size(f),
			})
		}
	}

	sort.SliceStable(info.VideoFormats, func(i, j int) bool {
		return info.VideoFormats[i].Height > info.VideoFormats[j].Height
	})
	sort.SliceStable(info.AudioFormats, func(i, j int) bool {
		return info.AudioFormats[i].Bitrate > info.AudioFormats[j].Bitrate
	})

	return info, nil
}

func size(f rawFormat) int64 {
	if f.Filesize != nil {
		return *f.Filesize
	}
	return deref(f.FilesizeApprox)
}

func deref[T int | int64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}
