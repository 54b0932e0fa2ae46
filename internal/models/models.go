package models

// ProgressEvent is one line of the newline-delimited progress stream.
// Percent is non-decreasing across a single request.
type ProgressEvent struct {
	Type    string `json:"type"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// NewProgress creates a progress event
func NewProgress(percent int, message string) ProgressEvent {
	return ProgressEvent{Type: "progress", Percent: percent, Message: message}
}

// ResultData is the success payload of the terminal envelope
type ResultData struct {
	BlueprintID     int    `json:"blueprintId"`
	BlueprintTitle  string `json:"blueprintTitle,omitempty"`
	BlueprintBrand  string `json:"blueprintBrand,omitempty"`
	ProductType     string `json:"productType"`
	ListingTitle    string `json:"listingTitle"`
	MockupsUploaded int    `json:"mockupsUploaded"`
}

// ServerResponse is the single terminal envelope ending a progress stream
type ServerResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    *ResultData `json:"data,omitempty"`
}
