package sonar

import (
	"context"
	"fmt"
)

// usersService implements the UsersService interface.
type usersService struct {
	*service
}

// NewUsersService initializes a new users service.
func NewUsersService(client *Client) UsersService {
	return &usersService{service: &service{client}}
}

// Search looks up users matching the query by login, name or email. A single
// page is enough for login resolution.
func (us *usersService) Search(ctx context.Context, query string) ([]User, error) {
	params := map[string]string{"ps": "100"}
	if query != "" {
		params["q"] = query
	}

	response, err := us.client.get(ctx, "/users/search", us.client.orgParams(params))
	if err != nil {
		return nil, fmt.Errorf("error searching users: %w", err)
	}

	var resp UsersSearchResponse
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Current retrieves the user the configured token authenticates as.
func (us *usersService) Current(ctx context.Context) (*User, error) {
	response, err := us.client.get(ctx, "/users/current", nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching current user: %w", err)
	}

	var resp User
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// tokensService implements the TokensService interface.
type tokensService struct {
	*service
}

// NewTokensService initializes a new tokens service.
func NewTokensService(client *Client) TokensService {
	return &tokensService{service: &service{client}}
}

// Search lists the tokens of a user. An empty login means the authenticated
// user; listing others requires administer permission.
func (ts *tokensService) Search(ctx context.Context, login string) (*TokenList, error) {
	params := map[string]string{}
	if login != "" {
		params["login"] = login
	}

	response, err := ts.client.get(ctx, "/user_tokens/search", params)
	if err != nil {
		return nil, fmt.Errorf("error fetching user tokens: %w", err)
	}

	var resp TokenList
	if err := unmarshalResponse(response, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Revoke deletes a user token by name.
func (ts *tokensService) Revoke(ctx context.Context, login, name string) error {
	form := map[string]string{"name": name}
	if login != "" {
		form["login"] = login
	}

	response, err := ts.client.postForm(ctx, "/user_tokens/revoke", form)
	if err != nil {
		return fmt.Errorf("error revoking token %q: %w", name, err)
	}
	return checkResponse(response)
}
