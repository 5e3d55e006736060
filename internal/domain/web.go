package domain

// WebResult is one page returned by the web search provider.
type WebResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}
