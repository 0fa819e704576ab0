package domain

// GenerationRequest carries one user-initiated generation. It lives only
// for the duration of the pipeline run and is never persisted.
type GenerationRequest struct {
	Prompt     string
	Parameters map[string]interface{}
}

// GenerationResult is the normalized provider output. ImageRefs always has
// at least one non-empty entry; an empty provider result is a provider
// fault, not an empty GenerationResult.
type GenerationResult struct {
	ImageRefs []string `json:"image_refs"`
}

// First returns the canonical image reference. The provider may return
// several candidates; the first one is what the UI shows and what gets
// persisted.
func (r *GenerationResult) First() string {
	if r == nil || len(r.ImageRefs) == 0 {
		return ""
	}
	return r.ImageRefs[0]
}

// Design is the durable record of a persisted generation.
// ImageURL always points into our own object store, never at the
// provider's ephemeral URL. Records are immutable once written.
type Design struct {
	ID        string `json:"id" firestore:"-"`
	UserID    string `json:"user_id" firestore:"userId"`
	Prompt    string `json:"prompt" firestore:"prompt"`
	ImageURL  string `json:"image_url" firestore:"imageUrl"`
	CreatedAt int64  `json:"created_at" firestore:"createdAt"` // epoch millis
}
