package dto

type UploadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	EntriesAdded  int    `json:"entriesAdded"`
	EntriesFailed int    `json:"entriesFailed"`
	EntriesTotal  int    `json:"entriesTotal"`
}

type KnowledgeListRequest struct {
	Page  int `query:"page" validate:"min=1"`
	Limit int `query:"limit" validate:"min=1,max=500"`
}

type KnowledgeListResponse struct {
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
	Entries []KnowledgeEntryBrief `json:"entries"`
}

// KnowledgeEntryBrief omits the embedding to keep listings small.
type KnowledgeEntryBrief struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Source    string `json:"source"`
	CreatedAt string `json:"createdAt"`
}
