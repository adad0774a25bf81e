package answercache

// Citation points at the rule text an answer was grounded on.
type Citation struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
	Page    int    `json:"page,omitempty"`
}

// Answer is the payload cached for a (game, question) fingerprint.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}
