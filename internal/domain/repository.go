package domain

// Repository identifies what a pipeline provider observes. For GitHub it is
// owner/name; for Jenkins Owner is empty and Name is the job path.
type Repository struct {
	Owner     string
	Name      string
	RemoteURL string
}

// FullName returns "owner/name", or just the name when Owner is empty.
func (r Repository) FullName() string {
	if r.Owner == "" {
		return r.Name
	}
	return r.Owner + "/" + r.Name
}
