package catalog

// CreatePlayerRequest carries the fields for a new catalog entry. Tier is
// derived from Overall and cannot be supplied directly.
type CreatePlayerRequest struct {
	Name      string `json:"name"`
	Overall   int    `json:"overall"`
	Position  string `json:"position"`
	Pace      int    `json:"pace"`
	Shooting  int    `json:"shooting"`
	Passing   int    `json:"passing"`
	Dribbling int    `json:"dribbling"`
	Defending int    `json:"defending"`
	Physical  int    `json:"physical"`
}
