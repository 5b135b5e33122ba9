package request

// ImportRequest carries pasted statement text.
type ImportRequest struct {
	Raw string `json:"raw"`
}
