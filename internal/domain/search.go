package domain

// SearchResult is one catalog hit: a file offered by a peer, together with
// the command that requests it. Results carry no identifier and are not
// persisted across queries.
type SearchResult struct {
	Server   string `json:"server"`
	FileName string `json:"fileName"`
	Nick     string `json:"nick"`
	Command  string `json:"command"`
}

// Request converts a search hit into the transfer request it describes
func (r SearchResult) Request() TransferRequest {
	return TransferRequest{
		Server:   r.Server,
		FileName: r.FileName,
		Nick:     r.Nick,
		Command:  r.Command,
	}
}
