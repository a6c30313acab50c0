package badger

import "errors"

// Repositories bundles every repository over one shared backend.
type Repositories struct {
	Units     *UnitRepository
	Sessions  *SessionRepository
	Manifests *ManifestRepository

	backend *Backend
}

// OpenRepositories opens the database at path and creates all repositories on it.
func OpenRepositories(path string) (*Repositories, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend)
}

func newRepositories(backend *Backend) (*Repositories, error) {
	sessions, err := NewSessionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Units:     NewUnitRepository(backend),
		Sessions:  sessions,
		Manifests: NewManifestRepository(backend),
		backend:   backend,
	}, nil
}

// Backend exposes the shared backend.
func (r *Repositories) Backend() *Backend {
	return r.backend
}

// Close releases the repositories and then the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Units.Close(),
		r.Sessions.Close(),
		r.backend.Close(),
	)
}
