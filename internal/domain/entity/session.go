package entity

// Session is supplied once per run and never changes while the run is alive.
type Session struct {
	Email    string
	Secret   string
	StartURL string
}
