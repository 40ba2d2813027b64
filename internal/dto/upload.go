package dto

// UploadResponse describes a stored file.
type UploadResponse struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}
