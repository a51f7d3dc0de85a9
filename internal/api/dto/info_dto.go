package dto

type InfoRequest struct {
	URL string `json:"url"`
}

type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Exists *bool  `json:"exists,omitempty"`
	Error  string `json:"error,omitempty"`
}
