package models

// WarningPayload is the JSON body POSTed to every configured warning route.
// Time is RFC3339; Logs carries the most recent audit lines, newest first,
// each formatted as "timestamp - message".
type WarningPayload struct {
	Time        string   `json:"time"`
	Description string   `json:"description"`
	Logs        []string `json:"logs"`
}
