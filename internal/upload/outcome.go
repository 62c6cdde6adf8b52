package upload

import "fmt"

// Outcome is the terminal result of one upload chain, retries included.
// It is what the UI receives as the "upload-result" payload.
//
// Success implies URL is set and Error is empty; failure implies Error is set.
type Outcome struct {
	Success  bool   `json:"success"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     string `json:"size,omitempty"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed returns an unsuccessful Outcome carrying msg.
func Failed(msg string) Outcome {
	if msg == "" {
		msg = "Upload failed"
	}
	return Outcome{Error: msg}
}

// FormatSize renders a byte count the way the upload panel shows it:
// "512 B", "2.0 KB", "3.0 MB".
func FormatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/1024/1024)
	}
}
