package domain

import "slices"

// Kind selects the output pipeline
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

const (
	DefaultVideoQuality = "720"
	DefaultAudioBitrate = "192"

	// AudioContainer is the container audio jobs are converted to
	AudioContainer = "mp3"
	// VideoContainer is the container video streams are merged into
	VideoContainer = "mp4"
)

var videoFormats = map[string]string{
	"360":  "best[height<=360]",
	"480":  "best[height<=480]",
	"720":  "best[height<=720]",
	"1080": "best[height<=1080]",
	"4k":   "best[height<=2160]",
	"best": "best",
}

var audioBitrates = []string{"128", "192", "256", "320"}

// Profile is the effective output selection for a job
type Profile struct {
	Kind Kind
	// Tier is a video quality ("720") or an audio bitrate in kbps ("192")
	Tier   string
	Format string
}

// ResolveProfile maps a requested tier onto the fixed enumeration for kind.
// Unknown tiers fall back to the default rather than being rejected.
func ResolveProfile(kind Kind, tier string) Profile {
	if kind == KindAudio {
		if !slices.Contains(audioBitrates, tier) {
			tier = DefaultAudioBitrate
		}
		return Profile{Kind: KindAudio, Tier: tier, Format: "bestaudio"}
	}

	format, ok := videoFormats[tier]
	if !ok {
		tier = DefaultVideoQuality
		format = videoFormats[tier]
	}
	return Profile{Kind: KindVideo, Tier: tier, Format: format}
}

// Extension is the required artifact extension, empty when any is accepted.
func (p Profile) Extension() string {
	if p.Kind == KindAudio {
		return "." + AudioContainer
	}
	return ""
}
