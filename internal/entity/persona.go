package entity

// Persona is one configured outreach identity. The registry is static for
// the lifetime of a run; routing never mutates it.
type Persona struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Title     string   `json:"title" yaml:"title"`
	FromEmail string   `json:"from_email" yaml:"from_email"`
	Keywords  []string `json:"keywords" yaml:"keywords"` // topic routing tags
	Sources   []string `json:"sources" yaml:"sources"`   // origin-source tags
	Repos     []string `json:"repos" yaml:"repos"`
}
