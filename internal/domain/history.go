package domain

// HistoryType names the operation a history entry was produced by. The values
// match the keys the web client already stores.
type HistoryType string

const (
	HistoryGenerate HistoryType = "generate"
	HistoryAnalyze  HistoryType = "analyze"
	HistoryUpscale  HistoryType = "upscale"
	HistoryBgRemove HistoryType = "bgRemove"
)

// HistoryTypeFor maps an action onto its history type.
func HistoryTypeFor(a Action) HistoryType {
	switch a {
	case ActionAnalyze:
		return HistoryAnalyze
	case ActionUpscale:
		return HistoryUpscale
	case ActionRemoveBackground:
		return HistoryBgRemove
	default:
		return HistoryGenerate
	}
}

// Valid reports whether t is a known history type.
func (t HistoryType) Valid() bool {
	switch t {
	case HistoryGenerate, HistoryAnalyze, HistoryUpscale, HistoryBgRemove:
		return true
	}
	return false
}

type HistoryInput struct {
	Prompt    string `json:"prompt,omitempty"`
	Query     string `json:"query,omitempty"`
	ImageName string `json:"imageName,omitempty"`
	Factor    string `json:"factor,omitempty"`
}

type HistoryOutput struct {
	ImageURL string `json:"imageUrl,omitempty"`
	Text     string `json:"text,omitempty"`
}

// HistoryItem is one entry of the playground history. Timestamp is in
// milliseconds since the Unix epoch.
type HistoryItem struct {
	ID        string        `json:"id"`
	Type      HistoryType   `json:"type"`
	Timestamp int64         `json:"timestamp"`
	Input     HistoryInput  `json:"input"`
	Output    HistoryOutput `json:"output"`
}

// RecordID satisfies history.Record.
func (h HistoryItem) RecordID() string {
	return h.ID
}
