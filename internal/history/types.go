package history

// Action is what happened to a favourite.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
)

// Entry is one recorded favourites change.
type Entry struct {
	ID        int64  `json:"id"`
	ImdbID    string `json:"imdbID"`
	Action    Action `json:"action"`
	Title     string `json:"title,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// ListOptions contains options for listing history.
type ListOptions struct {
	Action   string
	ImdbID   string
	Page     int
	PageSize int
}

// ListResponse contains paginated history results.
type ListResponse struct {
	Items      []*Entry `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalCount int64    `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
}
