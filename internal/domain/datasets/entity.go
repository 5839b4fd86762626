package datasets

import "time"

// DatasetID identifies a stored dataset.
type DatasetID int64

// Dataset is an uploaded tabular file tracked by the service.
type Dataset struct {
	ID         DatasetID `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
	Columns    []string  `json:"columns"`
}

// PreviewResponse is the header plus the first rows of a file.
type PreviewResponse struct {
	Filename string              `json:"filename"`
	Header   []string            `json:"header"`
	Data     []map[string]string `json:"data"`
}

// UploadResult is what the upload endpoint answers with.
type UploadResult struct {
	Message string   `json:"message"`
	FileURL string   `json:"file_url"`
	Dataset *Dataset `json:"-"`
}
