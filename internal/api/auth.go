package api

import (
	"context"
	"fmt"

	"github.com/margin-sh/margin/internal/comments"
)

// Viewer is the logged-in user as the rest of the client needs it: the
// numeric user ID plus the author snapshot stamped onto optimistic
// comments.
type Viewer struct {
	ID     int64
	Email  string
	Author comments.Author
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Key string `json:"key"`
}

// Login exchanges credentials for an auth token. The token is not
// installed on the client; callers decide when to adopt it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	if err := c.post(ctx, c.base+"/auth/login/", loginBody{Email: email, Password: password}, &resp); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	if resp.Key == "" {
		return "", fmt.Errorf("login failed: empty token in response")
	}
	return resp.Key, nil
}

// FetchMe returns the viewer for the installed token. Also serves as the
// session liveness check.
func (c *Client) FetchMe(ctx context.Context) (*Viewer, error) {
	var dto userDTO
	if err := c.get(ctx, c.base+"/user/me/", &dto); err != nil {
		return nil, err
	}
	if dto.ID == 0 {
		return nil, fmt.Errorf("fetching viewer: server returned no id")
	}
	v := &Viewer{ID: dto.ID, Author: comments.Author{ID: dto.ID}}
	if p := dto.AuthorProfile; p != nil {
		v.Author.Name = joinName(p.FirstName, p.LastName)
		v.Author.Headline = p.Headline
		v.Author.AvatarURL = p.ProfileImage
	}
	return v, nil
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
