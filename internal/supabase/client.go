// Package supabase adapts the Supabase client for the parts of the project
// the API relies on: auth sign-up/sign-in and the proof storage bucket.
package supabase

import (
	"errors"

	supabasego "github.com/supabase-community/supabase-go"
)

var ErrNotConfigured = errors.New("supabase url or service key missing")

// NewClient connects to the Supabase project with the service role key.
func NewClient(url, serviceKey string) (*supabasego.Client, error) {
	if url == "" || serviceKey == "" {
		return nil, ErrNotConfigured
	}
	return supabasego.NewClient(url, serviceKey, &supabasego.ClientOptions{})
}
