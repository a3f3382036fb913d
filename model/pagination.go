package model

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Page is the common pagination window for list queries.
type Page struct {
	Page  int `json:"page" query:"page"`
	Limit int `json:"limit" query:"limit"`
}

// Normalize fills defaults and clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }
