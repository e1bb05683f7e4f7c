package dto

type ResetStuckRequest struct {
	StaleAfterSeconds int `json:"stale_after_seconds" validate:"gte=0"`
}

type ResetStuckResponse struct {
	Reset int `json:"reset"`
}

type BackfillMaturityResponse struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
