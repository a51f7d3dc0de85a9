package transform

import (
	"context"

	"github.com/cuongbtq/media-gateway/internal/domain"
)

// Invocation describes one downloader run
type Invocation struct {
	URL string
	// OutputTemplate embeds the job id, e.g. "<dir>/<id>.%(ext)s"
	OutputTemplate string
	Format         string
	Options        Options
}

// Options are downloader switches beyond the format selector
type Options struct {
	NoPlaylist   bool
	MergeFormat  string
	ExtractAudio bool
	AudioFormat  string
	AudioQuality string
}

// Exit is the single completion signal of an invocation.
// Err is set when the process could not run at all; otherwise Code is its exit status.
type Exit struct {
	Code int
	// OutputPath is the produced file when the downloader reported it
	OutputPath string
	Detail     string
	Err        error
}

// Success reports a clean zero exit
func (e Exit) Success() bool {
	return e.Err == nil && e.Code == 0
}

// Transformer runs the external downloader asynchronously. The returned
// channel receives exactly one Exit and is then closed.
type Transformer interface {
	Invoke(ctx context.Context, inv Invocation) <-chan Exit
}

// Prober extracts metadata for a source URL without downloading it
type Prober interface {
	Probe(ctx context.Context, url string) (*domain.MediaInfo, error)
}

// InvocationFor builds the downloader invocation for a profile
func InvocationFor(url, outputTemplate string, profile domain.Profile) Invocation {
	inv := Invocation{
		URL:            url,
		OutputTemplate: outputTemplate,
		Format:         profile.Format,
		Options:        Options{NoPlaylist: true},
	}

	switch profile.Kind {
	case domain.KindAudio:
		inv.Options.ExtractAudio = true
		inv.Options.AudioFormat = domain.AudioContainer
		inv.Options.AudioQuality = profile.Tier
	default:
		inv.Options.MergeFormat = domain.VideoContainer
	}

	return inv
}
