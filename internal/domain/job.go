package domain

// Handle describes a finished job and where to fetch its artifact
type Handle struct {
	ID          string
	Filename    string
	DownloadURL string
	Profile     Profile
}

// MediaInfo is the metadata extracted for a source URL
type MediaInfo struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Duration     float64       `json:"duration"`
	Thumbnail    string        `json:"thumbnail"`
	Uploader     string        `json:"uploader"`
	UploadDate   string        `json:"uploadDate"`
	Views        int64         `json:"views"`
	VideoFormats []VideoFormat `json:"videoFormats"`
	AudioFormats []AudioFormat `json:"audioFormats"`
}

type VideoFormat struct {
	Quality  string `json:"quality"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	FormatID string `json:"formatId"`
	Ext      string `json:"ext"`
	Filesize int64  `json:"filesize,omitempty"`
}

type AudioFormat struct {
	Bitrate  float64 `json:"bitrate"`
	FormatID string  `json:"formatId"`
	Ext      string  `json:"ext"`
	Filesize int64   `json:"filesize,omitempty"`
}
