package model

import "time"

// RenderedPage is a product page as returned by a renderer.
type RenderedPage struct {
	URL        string    `json:"url"`
	FinalURL   string    `json:"final_url,omitempty"`
	Title      string    `json:"title"`
	HTML       string    `json:"html"`
	StatusCode int       `json:"status_code"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// IsEmpty reports whether the page carries no usable markup.
func (p *RenderedPage) IsEmpty() bool {
	return p == nil || len(p.HTML) < 100
}
