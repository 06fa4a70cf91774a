package models

type Content struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	Link        *string `json:"link"`
	AuthorID    int     `json:"author_id"`
	PublishedAt string  `json:"published_at"`
	Levels      []Level `json:"levels"`
}

type PublishRequest struct {
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	Link   *string `json:"link"`
	Levels []Level `json:"levels"`
}

type PublishResult struct {
	ContentID int     `json:"content_id"`
	Levels    []Level `json:"levels"`
}

type NotificationResult struct {
	ContentID int    `json:"content_id"`
	Level     Level  `json:"level"`
	ChannelID string `json:"channel_id"`
	Status    string `json:"status"`
}

type Health struct {
	Status string `json:"status"`
}
