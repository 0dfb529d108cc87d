package storage

import "context"

// Mirror writes artifacts to a primary store and best-effort copies them to
// a secondary one (typically local disk plus a GCS bucket). Existence and
// locations are answered by the primary; the secondary never fails a write.
type Mirror struct {
	Primary   BlobStore
	Secondary BlobStore
	// OnSecondaryError observes mirror failures; nil ignores them.
	OnSecondaryError func(path string, err error)
}

// PutObject writes to the primary, then mirrors to the secondary.
func (m *Mirror) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	location, err := m.Primary.PutObject(ctx, path, contentType, data)
	if err != nil {
		return "", err
	}
	if m.Secondary != nil {
		if _, mirrorErr := m.Secondary.PutObject(ctx, path, contentType, data); mirrorErr != nil && m.OnSecondaryError != nil {
			m.OnSecondaryError(path, mirrorErr)
		}
	}
	return location, nil
}

// Exists delegates to the primary store.
func (m *Mirror) Exists(ctx context.Context, path string) (bool, error) {
	return m.Primary.Exists(ctx, path)
}

// Location delegates to the primary store.
func (m *Mirror) Location(path string) string {
	return m.Primary.Location(path)
}
