package gateway

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrVideoTooLarge is returned when a video body is over the read limit.
var ErrVideoTooLarge = errors.New("gateway: video exceeds size limit")

// ReadVideo reads a video body of at most limit bytes. A longer body is an
// error, never a truncated video.
func ReadVideo(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", ErrVideoTooLarge, limit)
	}
	return data, nil
}

// HTTP paths of the proxy endpoints.
const (
	PathGenerateVideo     = "/api/generate-video"
	PathGenerateNarration = "/api/generate-narration"
	PathExpandScript      = "/api/expand-script"
	PathSummarizeScript   = "/api/summarize-script"
	PathExtractShots      = "/api/extract-shots"
	PathAnalyzeDocument   = "/api/analyze-document"
	PathAnalyzeImages     = "/api/analyze-images"
)

// FilePayload is an inline file as it travels in proxy request bodies.
type FilePayload struct {
	Base64   string `json:"base64"`
	MIMEType string `json:"mimeType"`
}

func EncodeFile(f MediaFile) FilePayload {
	return FilePayload{
		Base64:   base64.StdEncoding.EncodeToString(f.Data),
		MIMEType: f.MIMEType,
	}
}

func (p FilePayload) Decode() (MediaFile, error) {
	data, err := base64.StdEncoding.DecodeString(p.Base64)
	if err != nil {
		return MediaFile{}, fmt.Errorf("decode base64 file: %w", err)
	}
	return MediaFile{MIMEType: p.MIMEType, Data: data}, nil
}

type GenerateVideoRequest struct {
	Prompt string       `json:"prompt"`
	Image  *FilePayload `json:"image,omitempty"`
}

type NarrationRequest struct {
	Prompt string `json:"prompt"`
}

type NarrationResponse struct {
	Narration string `json:"narration"`
}

type ExpandScriptRequest struct {
	Idea string `json:"idea"`
}

type ScriptRequest struct {
	Script string `json:"script"`
}

type ScriptResponse struct {
	Script string `json:"script"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type AnalyzeDocumentRequest struct {
	FileData FilePayload `json:"fileData"`
}

type AnalyzeImagesRequest struct {
	Images []FilePayload `json:"images"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
