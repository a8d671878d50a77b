package store

// Story is one saved generated story. Audio, when present, is the raw
// narration payload: 16-bit little-endian PCM, 24 kHz, mono.
type Story struct {
	ID        string `json:"id"` // Epoch-millisecond string, assigned at save time
	AccountID string `json:"account_id"`
	Title     string `json:"title"`
	Content   string `json:"content"` // Markdown-formatted Persian prose
	Genre     string `json:"genre"`
	Prompt    string `json:"prompt"`
	CreatedAt int64  `json:"created_at"` // Epoch milliseconds
	Audio     []byte `json:"audio,omitempty"`
}
