package models

// UploadTargetRequest asks for a write authorization for one file.
type UploadTargetRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// UploadTarget is returned to the browser, which PUTs the file to URL and
// later reads it from PublicURL.
type UploadTarget struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl"`
}

// ConfirmUploadRequest records a finished upload.
type ConfirmUploadRequest struct {
	Key        string  `json:"key"`
	Filename   string  `json:"filename"`
	Size       *int64  `json:"size"`
	Mime       *string `json:"mime"`
	PublicURL  string  `json:"publicUrl"`
	SourcePath *string `json:"source_path"`
}
