package piped

import "strings"

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	UploaderName string `json:"uploaderName"`
	Duration     int    `json:"duration"`
	Thumbnail    string `json:"thumbnail"`
}

// videoID extracts the id from a watch URL like "/watch?v=abc123".
func (i searchItem) videoID() string {
	_, id, found := strings.Cut(i.URL, "v=")
	if !found {
		return ""
	}
	if amp := strings.IndexByte(id, '&'); amp >= 0 {
		id = id[:amp]
	}
	return id
}

type streamsResponse struct {
	Title        string        `json:"title"`
	Uploader     string        `json:"uploader"`
	Duration     int           `json:"duration"`
	AudioStreams []audioStream `json:"audioStreams"`
}

type audioStream struct {
	URL      string `json:"url"`
	Format   string `json:"format"`
	Quality  string `json:"quality"`
	MimeType string `json:"mimeType"`
}
