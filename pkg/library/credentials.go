package library

import "context"

// CredentialSource supplies the current credential for one storefront.
// An empty string means the user never configured the storefront.
//
// Storefronts with refreshable credentials (Epic) persist the refreshed
// blob back through SetCredential so the next run starts from it.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
	SetCredential(ctx context.Context, value string) error
}

// StaticCredential is a CredentialSource backed by a fixed string.
// SetCredential updates it in memory only. Useful in tests.
type StaticCredential string

// Credential returns the stored value.
func (s *StaticCredential) Credential(ctx context.Context) (string, error) {
	return string(*s), nil
}

// SetCredential replaces the stored value.
func (s *StaticCredential) SetCredential(ctx context.Context, value string) error {
	*s = StaticCredential(value)
	return nil
}
