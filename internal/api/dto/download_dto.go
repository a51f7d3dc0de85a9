package dto

type VideoDownloadRequest struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
}

type AudioDownloadRequest struct {
	URL     string `json:"url"`
	Bitrate string `json:"bitrate"`
}

type VideoDownloadResponse struct {
	Success     bool   `json:"success"`
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
	Quality     string `json:"quality"`
}

type AudioDownloadResponse struct {
	Success     bool   `json:"success"`
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"downloadUrl"`
	Bitrate     string `json:"bitrate"`
}

type StatusResponse struct {
	Exists      bool   `json:"exists"`
	Filename    string `json:"filename,omitempty"`
	Size        int64  `json:"size,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
