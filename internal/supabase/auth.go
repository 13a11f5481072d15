package supabase

import (
	"errors"

	"github.com/supabase-community/gotrue-go/types"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// GoTrue is the part of the gotrue client the auth proxy calls.
type GoTrue interface {
	Signup(req types.SignupRequest) (*types.SignupResponse, error)
	SignInWithEmailPassword(email, password string) (*types.TokenResponse, error)
}

// Session is what the API hands back after sign-up or sign-in.
type Session struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Auth proxies credentials to Supabase Auth; no password ever touches our tables.
type Auth struct {
	client GoTrue
}

func NewAuth(client GoTrue) *Auth {
	return &Auth{client: client}
}

// Register creates the auth user. When email confirmation is on, the
// returned session has no tokens yet.
func (a *Auth) Register(email, password, fullName string) (Session, error) {
	resp, err := a.client.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     map[string]interface{}{"full_name": fullName},
	})
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:       resp.User.ID.String(),
		Email:        resp.User.Email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// Login exchanges credentials for a session. Every gotrue failure is
// reported as ErrInvalidCredentials so the response never reveals which accounts exist.
func (a *Auth) Login(email, password string) (Session, error) {
	resp, err := a.client.SignInWithEmailPassword(email, password)
	if err != nil {
		return Session{}, errors.Join(ErrInvalidCredentials, err)
	}
	return Session{
		UserID:       resp.User.ID.String(),
		Email:        resp.User.Email,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}
