package models

// ConversationTurn is one prior message supplied by the caller.
type ConversationTurn struct {
	Speaker string `json:"messager"`
	Message string `json:"message"`
}

// AskRequest is the body of an ask request. History is a pointer so that a
// missing or null history can be told apart from an empty one.
type AskRequest struct {
	Query   string              `json:"query"`
	History *[]ConversationTurn `json:"history"`
}

// Turns returns the history, or nil when none was supplied.
func (r *AskRequest) Turns() []ConversationTurn {
	if r.History == nil {
		return nil
	}
	return *r.History
}

// Validate checks that query is non-empty and history is present.
func (r *AskRequest) Validate() error {
	if r.Query == "" {
		return &ValidationError{Field: "query", Message: "Missing query parameter"}
	}
	if r.History == nil {
		return &ValidationError{Field: "history", Message: "Missing history parameter"}
	}
	return nil
}

// AskResponse is returned for every successful ask, including when nothing
// relevant was retrieved (RetrievedDocs is then empty).
type AskResponse struct {
	Query         string    `json:"query"`
	RetrievedDocs []Passage `json:"retrieved_docs"`
	Response      string    `json:"response"`
}
